package application

import "context"

type clientIPKey struct{}

// WithClientIP attaches the caller's address, used to localise the welcome
// email.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

func ClientIP(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}
