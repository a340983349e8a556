package rule_test

import (
	"testing"

	"github.com/go-playground/validator/v10"

	"github.com/yeisme/filedrop/pkg/rule"
)

// accountForm 复用 username/password 别名.
type accountForm struct {
	Username string `rule:"required,username"`
	Password string `rule:"required,password"`
}

// TestEngine 测试 Engine 函数返回非 nil 实例.
func TestEngine(t *testing.T) {
	if rule.Engine() == nil {
		t.Fatal("Engine() returned nil")
	}
}

// TestUsernameAlias 用户名长度必须在 3 到 20 之间.
func TestUsernameAlias(t *testing.T) {
	cases := []struct {
		name    string
		form    accountForm
		wantErr bool
	}{
		{"ok", accountForm{Username: "alice", Password: "1234"}, false},
		{"too short", accountForm{Username: "al", Password: "1234"}, true},
		{"too long", accountForm{Username: "abcdefghijklmnopqrstu", Password: "1234"}, true},
		{"short password", accountForm{Username: "alice", Password: "123"}, true},
		{"boundary", accountForm{Username: "abcdefghijklmnopqrst", Password: "abcd"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := rule.ValidateStruct(tc.form)
			if (err != nil) != tc.wantErr {
				t.Errorf("ValidateStruct() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

// TestStorageKey 存储名只允许时间戳前缀加安全字符.
func TestStorageKey(t *testing.T) {
	valid := []string{"1700000000000-report.pdf", "1-a_b-c.tar.gz"}
	for _, k := range valid {
		if err := rule.ValidateVar(k, "storagekey"); err != nil {
			t.Errorf("%q should be valid: %v", k, err)
		}
	}

	invalid := []string{"../etc/passwd", "report.pdf", "17-a/b", "17-"}
	for _, k := range invalid {
		if err := rule.ValidateVar(k, "storagekey"); err == nil {
			t.Errorf("%q should be rejected", k)
		}
	}
}

// TestShareID 分享 ID 使用 nanoid 字母表.
func TestShareID(t *testing.T) {
	if err := rule.ValidateVar("V1StGXR8_Z", "shareid"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := rule.ValidateVar("abc def", "shareid"); err == nil {
		t.Error("space should be rejected")
	}
}

// TestErrors 展开校验错误为字段映射.
func TestErrors(t *testing.T) {
	err := rule.ValidateStruct(accountForm{Username: "x"})

	fields := rule.Errors(err)
	if fields == nil {
		t.Fatalf("expected validation errors, got %v", err)
	}

	if fields["Username"] != "username" {
		t.Errorf("Username tag = %q", fields["Username"])
	}

	if fields["Password"] != "required" {
		t.Errorf("Password tag = %q", fields["Password"])
	}

	if rule.Errors(nil) != nil {
		t.Error("nil error should give nil map")
	}
}

// TestRegisterValidation 自定义规则可在运行时注册.
func TestRegisterValidation(t *testing.T) {
	err := rule.RegisterValidation("even", func(fl validator.FieldLevel) bool {
		return fl.Field().Int()%2 == 0
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := rule.ValidateVar(4, "even"); err != nil {
		t.Errorf("4 should be even: %v", err)
	}

	if err := rule.ValidateVar(3, "even"); err == nil {
		t.Error("3 should fail")
	}
}
