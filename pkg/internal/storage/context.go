package storage

import "context"

type managerKey struct{}

// WithManager 把 Manager 放入请求 ctx，handler 通过 ManagerFrom 取出做健康检查.
func WithManager(ctx context.Context, mgr *Manager) context.Context {
	return context.WithValue(ctx, managerKey{}, mgr)
}

// ManagerFrom 取出 Manager，未注入时返回 nil.
func ManagerFrom(ctx context.Context) *Manager {
	mgr, _ := ctx.Value(managerKey{}).(*Manager)

	return mgr
}
