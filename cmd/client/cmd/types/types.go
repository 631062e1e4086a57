package types

type contextKey string

// ClientAppKey carries the initialized client application in the command
// context.
const ClientAppKey contextKey = "clientApp"
