package views

// Flash is a one-shot message shown on the next page.
type Flash struct {
	Kind    string // success, error or info
	Message string
}

// Page carries what every layout needs.
type Page struct {
	Title     string
	CSRFToken string
	Flashes   []Flash
	SiteURL   string // connected WordPress site, empty when disconnected
}

// PostRow is one line of the post listing.
type PostRow struct {
	ID      int64
	Title   string
	Status  string
	Date    string
	Excerpt string
}

// PostsPage is the paginated post listing.
type PostsPage struct {
	Page
	Posts       []PostRow
	Status      string
	CurrentPage int
	TotalPages  int
}

// Section is one heading the editor can illustrate.
type Section struct {
	Index   int
	Kind    string
	Text    string
	Excerpt string
	// Images already placed under the heading.
	Images int
}

// EditPage is the post editor.
type EditPage struct {
	Page
	PostID        int64
	PostTitle     string
	Content       string
	Status        string
	FeaturedMedia int64
	Sections      []Section
	MaxBytes      int
}
