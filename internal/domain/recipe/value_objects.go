package recipe

// Field limits enforced on every create and update.
const (
	MaxTitleLength     = 200
	MaxLineLength      = 500
	MaxCookTimeMinutes = 24 * 60
	MaxServingsLength  = 20
	MaxTagLength       = 50
)

// Image returns the optional image reference (URL or data URI)
func (r *Recipe) Image() string { return r.image }

// SourceURL returns the page the recipe was imported from, if any
func (r *Recipe) SourceURL() string { return r.sourceURL }

// IsImported reports whether the recipe came from an external page
func (s Snapshot) IsImported() bool { return s.SourceURL != "" }

// WasModified reports whether the recipe has been explicitly updated since creation
func (s Snapshot) WasModified() bool { return s.UpdatedAt.After(s.CreatedAt) }
