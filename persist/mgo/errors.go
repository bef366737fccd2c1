package mgo

import (
	"errors"

	"github.com/globalsign/mgo"

	"github.com/saltybeagle/grouper/types"
)

// parseMgoError translates driver errors to the sentinel errors upper layers
// match on
func parseMgoError(e error) error {
	switch {
	case e == nil:
		return nil
	case errors.Is(e, mgo.ErrNotFound):
		return types.ErrNotFound
	case mgo.IsDup(e):
		return types.ErrAlreadyExists
	}
	return e
}
