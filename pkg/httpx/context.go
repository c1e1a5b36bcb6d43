package httpx

import "context"

type ctxKey string

const (
	CtxKeyUserID  ctxKey = "user_id"
	CtxKeySurface ctxKey = "surface" // which authorizer admitted the request
	CtxKeyAction  ctxKey = "action"  // validated out-of-band action
)

func WithUserID(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, CtxKeyUserID, uid)
}

// UserIDFrom returns the authenticated user id, or "" when the request was
// not authorized.
func UserIDFrom(ctx context.Context) string {
	uid, _ := ctx.Value(CtxKeyUserID).(string)
	return uid
}
