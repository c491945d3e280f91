package mirror

import (
	"fmt"
	"strings"
)

// Each category has a fixed canonical extension on the mirror; the summary
// category imposes no suffix and applies the user pattern as-is.
var categorySuffix = map[Category]string{
	CategoryRaw:     "rawacf.bz2",
	CategoryDat:     "dat.bz2",
	CategoryFit:     "fitacf.gz",
	CategoryMap:     "map",
	CategoryGrid:    "grid",
	CategorySummary: "",
}

// FilterSpec is the translated form of a request selection: where to list
// on the mirror and which server-side filter to apply. Pure derived data.
type FilterSpec struct {
	// RemotePath is the listing path. The leading "~" is load-bearing:
	// the mirror's filter matching only works against home-relative paths,
	// which is not obvious from the service documentation.
	RemotePath string

	// Filter is an opaque Transfer API filter expression
	// ("name:~*<pattern>*<suffix>"), not a portable glob or regex.
	Filter string
}

// SourcePrefix returns the absolute form of the remote path, used for the
// source side of transfer items.
func (f FilterSpec) SourcePrefix() string {
	return strings.TrimPrefix(f.RemotePath, "~")
}

// Translate maps a selection onto the mirror's directory layout and filter
// dialect. Pure and total: the category is already guarded by Validate.
// The month must be zero-padded to two digits; the listing is path-sensitive
// to this exact form.
func Translate(category Category, year, month int, pattern string) FilterSpec {
	spec := FilterSpec{
		RemotePath: fmt.Sprintf("~/chroot/sddata/%s/%d/%02d/", category, year, month),
		Filter:     fmt.Sprintf("name:~*%s*%s", pattern, categorySuffix[category]),
	}

	return spec
}
