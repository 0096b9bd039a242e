package validator

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"coffeeshop/internal/usecase"
)

const (
	productNameMin  = 2
	productNameMax  = 100
	productPriceMax = 999999999
	productDescMax  = 500
	imageURLMax     = 2048
	searchQueryMax  = 100
)

var imageExtRe = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif|webp|svg)$`)

type productValidator struct{}

// Usecaseは interface を依存注入
func NewProductValidator() usecase.ProductValidator {
	return &productValidator{}
}

// 値はusecase側でtrim済み
func (v *productValidator) ValidateCreate(in usecase.AdminCreateProductInput) error {
	var fields []string
	if !validName(in.Name) {
		fields = append(fields, "name")
	}
	if !validPrice(in.Price) {
		fields = append(fields, "price")
	}
	if in.Description != nil && utf8.RuneCountInString(*in.Description) > productDescMax {
		fields = append(fields, "desc")
	}
	if in.Image != nil && *in.Image != "" && !validImageURL(*in.Image) {
		fields = append(fields, "image")
	}
	return fieldsError(fields)
}

// 指定された項目だけ見る
func (v *productValidator) ValidateUpdate(in usecase.AdminUpdateProductInput) error {
	var fields []string
	if in.Name != nil && !validName(*in.Name) {
		fields = append(fields, "name")
	}
	if in.Price != nil && !validPrice(*in.Price) {
		fields = append(fields, "price")
	}
	if in.Description != nil && utf8.RuneCountInString(*in.Description) > productDescMax {
		fields = append(fields, "desc")
	}
	if in.Image != nil && *in.Image != "" && !validImageURL(*in.Image) {
		fields = append(fields, "image")
	}
	return fieldsError(fields)
}

func (v *productValidator) ValidateListQuery(in usecase.ListProductsInput) error {
	var fields []string
	if utf8.RuneCountInString(in.Q) > searchQueryMax {
		fields = append(fields, "q")
	}
	if in.MinPrice != nil && (*in.MinPrice < 0 || *in.MinPrice > productPriceMax) {
		fields = append(fields, "min_price")
	}
	if in.MaxPrice != nil && (*in.MaxPrice < 0 || *in.MaxPrice > productPriceMax) {
		fields = append(fields, "max_price")
	}
	if in.MinPrice != nil && in.MaxPrice != nil && *in.MinPrice > *in.MaxPrice {
		fields = append(fields, "min_price")
	}
	return fieldsError(dedupe(fields))
}

func validName(s string) bool {
	n := utf8.RuneCountInString(s)
	return n >= productNameMin && n <= productNameMax
}

func validPrice(p int64) bool {
	return p > 0 && p <= productPriceMax
}

// http(s)で画像の拡張子で終わるURL
func validImageURL(s string) bool {
	if len(s) > imageURLMax {
		return false
	}
	u, err := url.ParseRequestURI(s)
	if err != nil || u.Host == "" {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return false
	}
	return imageExtRe.MatchString(s)
}

func fieldsError(fields []string) error {
	if len(fields) == 0 {
		return nil
	}
	return &usecase.ValidationError{Fields: fields}
}

func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]bool{}
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
