//go:build !sqlite

package storage

import (
	"errors"

	logx "planner/pkg/logx"
)

func openSQLite(Config, logx.Logger) (Store, error) {
	return nil, errors.New("sqlite storage not built: build with -tags sqlite")
}
