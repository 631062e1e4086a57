package credential

import (
	"time"
)

// StoreConnection is the persisted, encrypted-at-rest connection record for
// one external store.
type StoreConnection struct {
	ID            string    `json:"id"`
	UserID        int       `json:"user_id"`
	StoreName     string    `json:"store_name"`
	Platform      string    `json:"platform"` // woocommerce, shopify
	EncryptedBlob string    `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Credentials is the single normalized credential shape the rest of the
// system consumes. Legacy blob key aliases are resolved once, at the
// boundary, by Normalize.
type Credentials struct {
	Platform       string
	APIURL         string
	ConsumerKey    string
	ConsumerSecret string
	AccessToken    string
	BlogURL        string
	BlogUser       string
	BlogPassword   string
}

// HasBlogAccess reports whether article endpoints can be reached.
func (c *Credentials) HasBlogAccess() bool {
	if c.BlogUser != "" && c.BlogPassword != "" {
		return true
	}
	return c.AccessToken != "" && c.Platform == "shopify"
}
