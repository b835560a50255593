package application

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/go-playground/validator/v10"
)

// EmailValidator は顧客のメールアドレスを検証する
type EmailValidator interface {
	IsValid(email string) bool
}

// ConfirmationCodeGenerator は予約の確認コードを生成する
type ConfirmationCodeGenerator interface {
	Generate() (string, error)
}

type emailValidator struct {
	validate *validator.Validate
}

// NewEmailValidator は go-playground/validator を使ったEmailValidatorを作成する
func NewEmailValidator() EmailValidator {
	return &emailValidator{validate: validator.New()}
}

func (v *emailValidator) IsValid(email string) bool {
	return v.validate.Var(email, "required,email") == nil
}

const (
	defaultCodeLength = 10
	codeLetters       = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// AlphabeticCodeGenerator は英字のみのランダムな確認コードを生成する
type AlphabeticCodeGenerator struct {
	length int
}

// NewAlphabeticCodeGenerator は指定文字数のコード生成器を作成する。0以下なら10文字
func NewAlphabeticCodeGenerator(length int) *AlphabeticCodeGenerator {
	if length <= 0 {
		length = defaultCodeLength
	}
	return &AlphabeticCodeGenerator{length: length}
}

// Generate は確認コードを生成する
func (g *AlphabeticCodeGenerator) Generate() (string, error) {
	max := big.NewInt(int64(len(codeLetters)))
	b := make([]byte, g.length)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("確認コード生成に失敗: %w", err)
		}
		b[i] = codeLetters[n.Int64()]
	}
	return string(b), nil
}
