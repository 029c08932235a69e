package swapform

import "errors"

var ErrSameAsset = errors.New("asset already selected on the other side")
