package scanner

type ListScansQuery struct {
	Limit  int      `query:"limit" json:"limit,omitempty" default:"24" validate:"min=1,max=100"`
	Offset int      `query:"offset" json:"offset,omitempty" validate:"min=0"`
	Status []string `query:"status" json:"status,omitempty" validate:"omitempty,dive,oneof=pending in_progress completed failed"`
}

type CreateScanPayload struct {
	Code string `json:"code" mod:"trim" validate:"required,min=1,max=50"`
}
