package logsvc

import (
	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"
	"go.uber.org/zap"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/user"
)

// RollbarLogger writes structured logs through zap and reports them to rollbar.
//
// Accepted args: error, map[string]interface{}, user.User (sets the rollbar
// person) and key/value pairs.
type RollbarLogger struct {
	zap *zap.SugaredLogger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(zl *zap.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.Rollbar)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetServerRoot("github.com/trezcool/elimu")
	rollbar.SetStackTracer(errors.StackTracer)
	l := &RollbarLogger{zap: zl.Sugar()}
	l.Enable(conf.Rollbar != "" && !conf.Debug && !conf.TestMode)
	return l
}

// NewZap builds the zap logger: development config in debug mode, production otherwise.
func NewZap(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	return cfg.Build(zap.AddCallerSkip(1))
}

func (l *RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// Close flushes both zap and the rollbar queue.
func (l *RollbarLogger) Close() {
	_ = l.zap.Sync()
	rollbar.Close()
}

// split separates args into zap key/values and rollbar args.
func (l *RollbarLogger) split(msg string, args []interface{}) (kvs []interface{}, rbArgs []interface{}) {
	var usrSet bool
	extras := make(map[string]interface{})
	rbArgs = append(rbArgs, msg)

	for i := 0; i < len(args); i++ {
		switch arg := args[i].(type) {
		case user.User:
			if !usrSet { // only set one User
				rollbar.SetPerson(arg.ID, arg.Username, arg.Email)
				kvs = append(kvs, "user_id", arg.ID)
				usrSet = true
			}
		case error:
			kvs = append(kvs, "error", arg)
			rbArgs = append(rbArgs, arg)
		case map[string]interface{}:
			for k, v := range arg {
				kvs = append(kvs, k, v)
				extras[k] = v
			}
		case string:
			if i+1 < len(args) {
				kvs = append(kvs, arg, args[i+1])
				extras[arg] = args[i+1]
				i++
			} else {
				kvs = append(kvs, "detail", arg)
				extras["detail"] = arg
			}
		default:
			kvs = append(kvs, "arg", arg)
		}
	}
	if !usrSet {
		rollbar.ClearPerson()
	}
	if len(extras) > 0 {
		rbArgs = append(rbArgs, extras)
	}
	return kvs, rbArgs
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) {
	kvs, rbArgs := l.split(msg, args)
	rollbar.Debug(rbArgs...)
	l.zap.Debugw(msg, kvs...)
}

func (l *RollbarLogger) Info(msg string, args ...interface{}) {
	kvs, rbArgs := l.split(msg, args)
	rollbar.Info(rbArgs...)
	l.zap.Infow(msg, kvs...)
}

func (l *RollbarLogger) Warn(msg string, args ...interface{}) {
	kvs, rbArgs := l.split(msg, args)
	rollbar.Warning(rbArgs...)
	l.zap.Warnw(msg, kvs...)
}

func (l *RollbarLogger) Error(msg string, args ...interface{}) {
	kvs, rbArgs := l.split(msg, args)
	rollbar.Error(rbArgs...)
	l.zap.Errorw(msg, kvs...)
}

func (l *RollbarLogger) Fatal(msg string, args ...interface{}) {
	kvs, rbArgs := l.split(msg, args)
	rollbar.Critical(rbArgs...)
	rollbar.Close()
	l.zap.Fatalw(msg, kvs...)
}
