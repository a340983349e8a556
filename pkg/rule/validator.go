// Package rule 封装 go-playground/validator，统一使用 "rule" 标签校验配置与请求结构体.
package rule

import (
	"errors"
	"regexp"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	inst *validator.Validate
	once sync.Once

	// storageKeyPattern 与上传时生成的存储名一致：毫秒时间戳-净化后的原始文件名.
	storageKeyPattern = regexp.MustCompile(`^[0-9]+-[A-Za-z0-9._-]+$`)
	// shareIDPattern nanoid 默认字母表.
	shareIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

// initValidator 尝试复用 gin 的 validator 引擎，使 ShouldBind 与 ValidateStruct 共用同一套规则.
func initValidator() {
	if engine := binding.Validator.Engine(); engine != nil {
		if v, ok := engine.(*validator.Validate); ok {
			inst = v
		}
	}

	if inst == nil {
		inst = validator.New()
	}

	inst.SetTagName("rule")
	registerBuiltins(inst)
}

func registerBuiltins(v *validator.Validate) {
	_ = v.RegisterValidation("storagekey", func(fl validator.FieldLevel) bool {
		return storageKeyPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("shareid", func(fl validator.FieldLevel) bool {
		return shareIDPattern.MatchString(fl.Field().String())
	})

	// 账户相关的长度约束在多个请求体中复用
	v.RegisterAlias("username", "min=3,max=20")
	v.RegisterAlias("password", "min=4,max=128")
}

// lazyInit 初始化全局 validator（幂等）.
func lazyInit() {
	once.Do(initValidator)
}

// Engine 返回全局 *validator.Validate，若未初始化则先初始化.
func Engine() *validator.Validate {
	lazyInit()

	return inst
}

// RegisterValidation 代理 RegisterValidation，确保已初始化.
func RegisterValidation(tag string, fn validator.Func, opts ...bool) error {
	lazyInit()

	return inst.RegisterValidation(tag, fn, opts...)
}

// ValidationErrors 字段名到失败规则的映射，便于直接返回给客户端.
type ValidationErrors map[string]string

// Errors 把 validator 的错误展开为 ValidationErrors；非校验错误返回 nil.
func Errors(err error) ValidationErrors {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil
	}

	out := make(ValidationErrors, len(ve))
	for _, fe := range ve {
		out[fe.Field()] = fe.Tag()
	}

	return out
}

// ValidateStruct 对结构体执行完整校验，返回原始 error（可用 Errors 解析）.
func ValidateStruct(s any) error {
	lazyInit()

	return inst.Struct(s)
}

// ValidateVar 按规则对单个变量校验，例如: ValidateVar("abc", "required,username").
func ValidateVar(field any, tag string) error {
	lazyInit()

	return inst.Var(field, tag)
}

// RegisterAlias 包装 RegisterAlias，便于注册别名规则.
func RegisterAlias(alias, rules string) {
	lazyInit()

	inst.RegisterAlias(alias, rules)
}
