package memory

import "github.com/gobeaver/formkit"

func init() {
	formkit.RegisterStrategy("memory", func(cfg *formkit.Config) (formkit.Strategy, error) {
		return New(), nil
	})
}
