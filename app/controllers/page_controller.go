package controllers

import (
	"github.com/shashiranjanraj/krishimitra/pkg/ctx"
)

// Page renders a page descriptor with no data.
func Page(name string) ctx.HandlerFunc {
	return func(c *ctx.Context) { c.Page(name, nil) }
}
