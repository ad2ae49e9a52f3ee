package main

// Link is one launcher entry. IconID and IconFile come from a left join
// against icons, so both are null when no icon is attached.
type Link struct {
	ID        int64   `db:"app_id" json:"id"`
	Title     string  `db:"app_title" json:"title"`
	URL       string  `db:"app_url" json:"url"`
	SortOrder int     `db:"app_sort_order" json:"sortOrder"`
	IconID    *int64  `db:"ico_id" json:"iconId"`
	IconFile  *string `db:"ico_file_name" json:"iconFile"`
}

type Icon struct {
	ID         int64  `db:"ico_id" json:"id"`
	Name       string `db:"ico_name" json:"name"`
	FileName   string `db:"ico_file_name" json:"fileName"`
	InUseCount int    `db:"in_use_count" json:"inUseCount"`
}

// Page feeds the home template.
type Page struct {
	LogoURL string
	Title   string
	Intro   string
	Links   []Link
}
