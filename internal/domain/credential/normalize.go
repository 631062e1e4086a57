package credential

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Known platforms. Adapter registration elsewhere must cover this set.
var supportedPlatforms = map[string]bool{
	"woocommerce": true,
	"shopify":     true,
}

// Normalize converts a decrypted credential blob into the one typed
// Credentials shape. Blobs from older connection records come in several
// forms: a bare API-key string, or a JSON object using any of a few legacy
// key aliases. All alias guessing happens here and nowhere else.
func Normalize(platform string, blob []byte) (*Credentials, error) {
	platform = strings.ToLower(strings.TrimSpace(platform))
	if !supportedPlatforms[platform] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, platform)
	}

	creds := &Credentials{Platform: platform}

	trimmed := strings.TrimSpace(string(blob))
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty blob", ErrInvalidBlob)
	}

	// Oldest records stored a single token as a bare string.
	if !strings.HasPrefix(trimmed, "{") {
		creds.AccessToken = trimmed
		return creds, nil
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBlob, err)
	}

	creds.APIURL = firstString(raw, "api_url", "store_url", "url", "siteUrl")
	creds.ConsumerKey = firstString(raw, "consumer_key", "consumerKey", "key")
	creds.ConsumerSecret = firstString(raw, "consumer_secret", "consumerSecret", "secret")
	creds.AccessToken = firstString(raw, "access_token", "accessToken", "token")
	creds.BlogURL = firstString(raw, "blog_url", "blogUrl", "wp_url")
	creds.BlogUser = firstString(raw, "blog_user", "blogUser", "wp_user")
	creds.BlogPassword = firstString(raw, "blog_password", "blogPassword", "wp_app_password")

	if creds.BlogURL == "" {
		creds.BlogURL = creds.APIURL
	}

	switch platform {
	case "woocommerce":
		if creds.APIURL == "" || creds.ConsumerKey == "" || creds.ConsumerSecret == "" {
			return nil, fmt.Errorf("%w: woocommerce blob missing url or key pair", ErrInvalidBlob)
		}
	case "shopify":
		if creds.APIURL == "" || creds.AccessToken == "" {
			return nil, fmt.Errorf("%w: shopify blob missing shop url or access token", ErrInvalidBlob)
		}
	}

	creds.APIURL = strings.TrimRight(creds.APIURL, "/")
	creds.BlogURL = strings.TrimRight(creds.BlogURL, "/")
	return creds, nil
}

func firstString(raw map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := raw[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}
