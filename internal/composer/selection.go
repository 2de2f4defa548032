package composer

import (
	"fmt"

	"github.com/freshrecipes/studio/internal/model"
)

// Selection is a category or cuisine control. Picking a real value locks it
// into a one-line display until Unlock; the empty sentinel never locks.
type Selection struct {
	options []model.Option
	value   string
	locked  bool
}

func NewSelection(options []model.Option) Selection {
	return Selection{options: options}
}

// Choose sets the value. Unknown values are refused.
func (s *Selection) Choose(value string) error {
	if _, ok := model.FindOption(s.options, value); !ok {
		return fmt.Errorf("%w: %q", model.ErrUnknownOption, value)
	}
	s.value = value
	s.locked = value != ""
	return nil
}

// Unlock goes back to the selector, keeping the value.
func (s *Selection) Unlock() {
	s.locked = false
}

func (s *Selection) Value() string { return s.value }
func (s *Selection) Locked() bool  { return s.locked }
