package store

import (
	"storesync/internal/domain/credential"
)

type connectInput struct {
	Body connectRequest
}

type connectRequest struct {
	StoreName string `json:"store_name" doc:"Display name for the store" minLength:"1"`
	Platform  string `json:"platform" doc:"Store platform, one of woocommerce, shopify" enum:"woocommerce,shopify"`

	APIURL         string `json:"api_url" doc:"Base URL of the store" minLength:"1"`
	ConsumerKey    string `json:"consumer_key,omitempty" doc:"WooCommerce REST consumer key"`
	ConsumerSecret string `json:"consumer_secret,omitempty" doc:"WooCommerce REST consumer secret"`
	AccessToken    string `json:"access_token,omitempty" doc:"Shopify Admin API access token"`

	BlogURL      string `json:"blog_url,omitempty" doc:"WordPress URL when it differs from the store URL"`
	BlogUser     string `json:"blog_user,omitempty" doc:"WordPress user for post sync"`
	BlogPassword string `json:"blog_password,omitempty" doc:"WordPress application password"`
}

type connectOutput struct {
	Body connectResponse
}

type connectResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type listOutput struct {
	Body listResponse
}

type listResponse struct {
	Stores []*credential.StoreConnection `json:"stores"`
}

type findInput struct {
	ID string `path:"id" doc:"Store connection id"`
}

type findOutput struct {
	Body *credential.StoreConnection
}

type deleteInput struct {
	ID string `path:"id" doc:"Store connection id"`
}

type deleteOutput struct {
	Body statusResponse
}

type statusResponse struct {
	Status string `json:"status"`
}

type platformsOutput struct {
	Body platformsResponse
}

type platformsResponse struct {
	Platforms []string `json:"platforms"`
}
