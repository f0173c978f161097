package subject

import (
	"fmt"
	"log/slog"
	"slices"
)

// Compose applies transforms in order. It does not record itself in the
// history; each transform records its own step.
type Compose struct {
	Transforms []Transform

	// Logger receives inversion warnings. Nil means slog.Default().
	Logger *slog.Logger
}

// NewCompose wraps transforms in a Compose.
func NewCompose(transforms ...Transform) *Compose {
	return &Compose{Transforms: transforms}
}

func (c *Compose) Name() string { return "Compose" }

// Len returns the number of transforms.
func (c *Compose) Len() int { return len(c.Transforms) }

func (c *Compose) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// Apply runs every transform on the output of the previous one. With no
// transforms it returns a copy of s.
func (c *Compose) Apply(s *Subject) (*Subject, error) {
	if len(c.Transforms) == 0 {
		return s.Clone(), nil
	}
	out := s
	for _, t := range c.Transforms {
		next, err := t.Apply(out)
		if err != nil {
			return nil, fmt.Errorf("apply %s: %w", t.Name(), err)
		}
		out = next
	}
	return out, nil
}

// Inverse returns the inverses of the invertible transforms in reverse order.
// Transforms without an inverse are skipped, which leaves their effect in
// place. When warn is true every skipped transform is logged, and so is an
// inverse that ends up empty although c was not.
func (c *Compose) Inverse(warn bool) (*Compose, error) {
	log := c.logger()
	inverses := make([]Transform, 0, len(c.Transforms))
	for _, t := range c.Transforms {
		inv, ok := t.(Invertible)
		if !ok {
			if warn {
				log.Warn("skipping transform that is not invertible", "transform", t.Name())
			}
			continue
		}
		it, err := inv.Inverse()
		if err != nil {
			return nil, fmt.Errorf("invert %s: %w", t.Name(), err)
		}
		inverses = append(inverses, it)
	}
	slices.Reverse(inverses)
	if warn && len(inverses) == 0 && len(c.Transforms) > 0 {
		log.Warn("no invertible transforms found", "transforms", len(c.Transforms))
	}
	return &Compose{Transforms: inverses, Logger: c.Logger}, nil
}
