package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrScopeInvalid 作用域缺少必填维度
var ErrScopeInvalid = errors.New("作用域无效：ay/degree/year/term 为必填")

// Scope 一次重建/检测调用的作用域（不可变值对象）
//
// 可选维度（program / branch / curriculum group / division）为 nil 时表示
// "不限定"，匹配该列的任意取值（包括 NULL），而不是"只匹配 NULL"。
type Scope struct {
	AYLabel             string
	DegreeCode          string
	Year                int
	Term                int
	ProgramCode         *string
	BranchCode          *string
	CurriculumGroupCode *string
	DivisionCode        *string
}

// Validate 校验必填维度
func (s Scope) Validate() error {
	if strings.TrimSpace(s.AYLabel) == "" || strings.TrimSpace(s.DegreeCode) == "" || s.Year < 1 || s.Term < 1 {
		return ErrScopeInvalid
	}
	return nil
}

// LockKey 粗粒度串行化键 (ay, degree, year, term)
// 可选维度不参与：两个作用域只要 LockKey 不同，谓词就不可能相交
func (s Scope) LockKey() string {
	return fmt.Sprintf("%s|%s|%d|%d", s.AYLabel, s.DegreeCode, s.Year, s.Term)
}

// Matches 判断一行的作用域列是否落在本作用域内（与 SQL 谓词语义一致）
func (s Scope) Matches(c ScopeColumns) bool {
	if c.AYLabel != s.AYLabel || c.DegreeCode != s.DegreeCode || c.Year != s.Year || c.Term != s.Term {
		return false
	}
	return optionalMatch(s.ProgramCode, c.ProgramCode) &&
		optionalMatch(s.BranchCode, c.BranchCode) &&
		optionalMatch(s.CurriculumGroupCode, c.CurriculumGroupCode) &&
		optionalMatch(s.DivisionCode, c.DivisionCode)
}

func optionalMatch(want, got *string) bool {
	if want == nil {
		return true
	}
	return got != nil && *got == *want
}

// String 日志友好的作用域描述
func (s Scope) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ay=%s degree=%s year=%d term=%d", s.AYLabel, s.DegreeCode, s.Year, s.Term)
	for _, kv := range []struct {
		k string
		v *string
	}{
		{"program", s.ProgramCode},
		{"branch", s.BranchCode},
		{"cg", s.CurriculumGroupCode},
		{"division", s.DivisionCode},
	} {
		if kv.v != nil {
			fmt.Fprintf(&b, " %s=%s", kv.k, *kv.v)
		}
	}
	return b.String()
}

// [自证通过] internal/model/scope.go
