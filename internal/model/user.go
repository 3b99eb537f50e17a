package model

// User holds a user's wallet and discovery preferences. The misspelled
// preference keys are part of the stored document format and the public API.
type User struct {
	UID                 string   `json:"uid"`
	Wallet              []string `json:"wallet"`
	PreferredPlatforms  []string `json:"prefered_platforms"`
	PreferredCategories []string `json:"prefered_categories"`
}

// Preferences is the read-only view the match engine scores against.
type Preferences struct {
	Platforms  []string
	Categories []string
}

// Preferences extracts the user's preference sets.
func (u User) Preferences() Preferences {
	return Preferences{
		Platforms:  u.PreferredPlatforms,
		Categories: u.PreferredCategories,
	}
}

// Empty reports whether the user has no preferences configured at all.
func (p Preferences) Empty() bool {
	return len(p.Platforms) == 0 && len(p.Categories) == 0
}
