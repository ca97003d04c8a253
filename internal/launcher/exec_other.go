//go:build !unix

package launcher

import (
	"context"

	"mptx/internal/journal"
)

const transferMode = journal.ModeChild

func transfer(ctx context.Context, plan Plan) error {
	return RunChild(ctx, plan)
}
