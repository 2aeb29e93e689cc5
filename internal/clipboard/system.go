//go:build !js

package clipboard

import "github.com/atotto/clipboard"

func systemWrite(text string) error {
	if clipboard.Unsupported {
		return ErrUnsupported
	}
	return clipboard.WriteAll(text)
}
