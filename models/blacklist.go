package models

// Blacklist holds access tokens invalidated by logout before their expiry.
type Blacklist struct {
	Model
	Token string `gorm:"index" json:"token"`
}
