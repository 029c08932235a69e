// Package eth wraps the go-ethereum client plumbing the router ledger needs:
// dialing, transaction signing and waiting for receipts.
package eth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
)

var ErrEmptyEndpoint = errors.New("empty rpc endpoint")

func Dial(ctx context.Context, url string) (*ethclient.Client, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, ErrEmptyEndpoint
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	return ethclient.DialContext(ctx, url)
}
