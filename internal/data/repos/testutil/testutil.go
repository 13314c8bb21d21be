package testutil

import (
	"context"
	"sync"
	"testing"

	"github.com/yungbote/recall-backend/internal/platform/dbctx"
	"github.com/yungbote/recall-backend/internal/platform/logger"
)

var (
	logOnce sync.Once
	logg    *logger.Logger
	logErr  error
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	logOnce.Do(func() {
		logg, logErr = logger.New("test")
	})
	if logErr != nil {
		tb.Fatalf("failed to init logger: %v", logErr)
	}
	return logg
}

func DBC() dbctx.Context {
	return dbctx.Context{Ctx: context.Background()}
}
