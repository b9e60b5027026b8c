package local

import "github.com/gobeaver/formkit"

func init() {
	formkit.RegisterStrategy("local", func(cfg *formkit.Config) (formkit.Strategy, error) {
		return New(cfg.LocalBasePath)
	})
}
