// Package autoload initializes the global logger from the environment when
// blank-imported. Keep it as the first import in main so later init work is
// already logged correctly.
package autoload

import (
	configx "github.com/lamnv/todoagent/pkg/config"
	logx "github.com/lamnv/todoagent/pkg/logger"
)

func init() {
	cfg := configx.MustNew[logx.Config]("LOG")
	logx.Init(*cfg)
}
