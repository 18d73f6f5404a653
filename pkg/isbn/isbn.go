package isbn

import (
	"strings"
	"unicode"

	"github.com/shelfscan/shelfscan/pkg/errcodes"
)

// Kind classifies a scanned code.
type Kind string

const (
	KindISBN13 Kind = "isbn_13"
	KindISBN10 Kind = "isbn_10"
	KindUPC    Kind = "upc"
)

// Provider names a metadata source. The order in Identifier.Providers is the
// priority order the pipeline queries them in.
type Provider string

const (
	ProviderOpenLibrary Provider = "openlibrary"
	ProviderGoogleBooks Provider = "googlebooks"
	ProviderUPCItemDB   Provider = "upcitemdb"
)

// Identifier is the normalized form of a scanned code along with the
// providers applicable to it.
type Identifier struct {
	Code      string // normalized scanned code
	Kind      Kind
	ISBN10    string // set when known or derivable
	ISBN13    string // set when known or derivable
	Providers []Provider
}

// LookupISBN returns the ISBN the ISBN-backed providers should query,
// preferring ISBN-13. Empty when the code carries no ISBN.
func (id *Identifier) LookupISBN() string {
	if id.ISBN13 != "" {
		return id.ISBN13
	}
	return id.ISBN10
}

// Resolve normalizes and classifies a scanned code. ISBN codes are routed to
// OpenLibrary then Google Books; UPC codes go to UPCitemdb first, with the
// ISBN providers appended when the UPC payload embeds a valid ISBN-10 in its
// trailing ten digits. Codes that fail length or checksum validation return
// errcodes.InvalidCode.
func Resolve(code string) (*Identifier, error) {
	normalized := Normalize(code)

	switch {
	case len(normalized) == 13 && isISBNPrefix(normalized) && ValidateISBN13(normalized):
		return &Identifier{
			Code:      normalized,
			Kind:      KindISBN13,
			ISBN10:    To10(normalized),
			ISBN13:    normalized,
			Providers: []Provider{ProviderOpenLibrary, ProviderGoogleBooks},
		}, nil

	case len(normalized) == 10 && ValidateISBN10(normalized):
		return &Identifier{
			Code:      normalized,
			Kind:      KindISBN10,
			ISBN10:    normalized,
			ISBN13:    To13(normalized),
			Providers: []Provider{ProviderOpenLibrary, ProviderGoogleBooks},
		}, nil

	case len(normalized) == 12 && ValidateUPC(normalized),
		len(normalized) == 13 && ValidateISBN13(normalized):
		// Plain product codes: UPC-A or a non-Bookland EAN-13 (the EAN-13
		// check digit formula is the same as ISBN-13's).
		id := &Identifier{
			Code:      normalized,
			Kind:      KindUPC,
			Providers: []Provider{ProviderUPCItemDB},
		}
		if embedded := normalized[len(normalized)-10:]; ValidateISBN10(embedded) {
			id.ISBN10 = embedded
			id.ISBN13 = To13(embedded)
			id.Providers = append(id.Providers, ProviderOpenLibrary, ProviderGoogleBooks)
		}
		return id, nil
	}

	return nil, errcodes.InvalidCode(code)
}

func isISBNPrefix(s string) bool {
	return strings.HasPrefix(s, "978") || strings.HasPrefix(s, "979")
}

// Normalize removes hyphens, spaces, and common prefixes from a code. Only
// digits and X (the ISBN-10 checksum character) survive.
func Normalize(value string) string {
	value = strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(value)), "ISBN:")
	value = strings.TrimPrefix(value, "ISBN")

	var result strings.Builder
	for _, r := range value {
		if unicode.IsDigit(r) || r == 'X' || r == 'x' {
			result.WriteRune(r)
		}
	}
	return strings.ToUpper(result.String())
}

// ValidateISBN10 validates an ISBN-10 checksum.
// ISBN-10 uses modulo 11 with weights 10,9,8,7,6,5,4,3,2,1.
func ValidateISBN10(isbn string) bool {
	if len(isbn) != 10 {
		return false
	}

	var sum int
	for i, r := range isbn {
		var digit int
		switch {
		case r == 'X':
			if i != 9 {
				return false // X only valid as last digit
			}
			digit = 10
		case unicode.IsDigit(r):
			digit = int(r - '0')
		default:
			return false
		}
		sum += digit * (10 - i)
	}
	return sum%11 == 0
}

// ValidateISBN13 validates an ISBN-13 (or EAN-13) checksum.
// Alternating weights of 1 and 3.
func ValidateISBN13(isbn string) bool {
	if len(isbn) != 13 {
		return false
	}

	var sum int
	for i, r := range isbn {
		if !unicode.IsDigit(r) {
			return false
		}
		digit := int(r - '0')
		if i%2 == 0 {
			sum += digit
		} else {
			sum += digit * 3
		}
	}
	return sum%10 == 0
}

// ValidateUPC validates a 12-digit UPC-A check digit.
// Odd positions carry weight 3, even positions weight 1.
func ValidateUPC(upc string) bool {
	if len(upc) != 12 {
		return false
	}

	var sum int
	for i, r := range upc {
		if !unicode.IsDigit(r) {
			return false
		}
		digit := int(r - '0')
		if i == 11 {
			sum += digit
		} else if i%2 == 0 {
			sum += digit * 3
		} else {
			sum += digit
		}
	}
	return sum%10 == 0
}

// To13 converts a valid ISBN-10 to its ISBN-13 form (978 prefix).
func To13(isbn10 string) string {
	if len(isbn10) != 10 {
		return ""
	}

	core := "978" + isbn10[:9]
	var sum int
	for i, r := range core {
		digit := int(r - '0')
		if i%2 == 0 {
			sum += digit
		} else {
			sum += digit * 3
		}
	}
	check := (10 - sum%10) % 10
	return core + string(rune('0'+check))
}

// To10 converts a 978-prefixed ISBN-13 to its ISBN-10 form. 979-prefixed
// ISBNs have no ISBN-10 equivalent and return the empty string.
func To10(isbn13 string) string {
	if len(isbn13) != 13 || !strings.HasPrefix(isbn13, "978") {
		return ""
	}

	core := isbn13[3:12]
	var sum int
	for i, r := range core {
		sum += (10 - i) * int(r-'0')
	}
	check := (11 - sum%11) % 11
	if check == 10 {
		return core + "X"
	}
	return core + string(rune('0'+check))
}
