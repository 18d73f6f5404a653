package books

type ListBooksQuery struct {
	Limit  int     `query:"limit" json:"limit,omitempty" default:"24" validate:"min=1,max=100"`
	Offset int     `query:"offset" json:"offset,omitempty" validate:"min=0"`
	Search *string `query:"search" json:"search,omitempty" validate:"omitempty,max=100"`
}

type UpdateBookPayload struct {
	Title     *string `json:"title,omitempty" validate:"omitempty,min=1,max=500"`
	Author    *string `json:"author,omitempty" validate:"omitempty,max=500"`
	Publisher *string `json:"publisher,omitempty" validate:"omitempty,max=300"`
	Summary   *string `json:"summary,omitempty" validate:"omitempty,max=10000"`
	Count     *int    `json:"count,omitempty" validate:"omitempty,min=0"`
}
