// Package types 定义 HTTP 请求与响应结构. 请求字段使用 rule 标签，由 gin 绑定时校验.
package types

// ErrorResponse 统一错误响应.
type ErrorResponse struct {
	Error string `json:"error"`
	// PasswordRequired 分享需要口令时为 true
	PasswordRequired bool `json:"passwordRequired,omitempty"`
}

// SuccessResponse 无返回数据的成功响应.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// HealthResponse 健康检查结果.
type HealthResponse struct {
	Component string `json:"component"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}
