package bluetooth

import (
	"errors"

	"github.com/go-drift/radiobridge/pkg/activity"
	"github.com/go-drift/radiobridge/pkg/platform"
)

// Error codes sent to native callers.
const (
	CodeBusy                = "busy"
	CodeNoHostSession       = "no_host_session"
	CodePlatformUnavailable = "platform_unavailable"
	CodeLaunchFailed        = "launch_failed"
	CodeUnavailable         = "unavailable"
)

// channelError converts a bridge error into the ChannelError a native
// caller receives.
func channelError(err error) *platform.ChannelError {
	var ce *platform.ChannelError
	switch {
	case errors.Is(err, activity.ErrBusy):
		return platform.NewChannelError(CodeBusy, err.Error())
	case errors.Is(err, activity.ErrLaunchFailed):
		return platform.NewChannelError(CodeLaunchFailed, err.Error())
	case errors.Is(err, platform.ErrPlatformUnavailable):
		// Checked before ErrNoHostSession: a query without a session wraps both.
		return platform.NewChannelError(CodePlatformUnavailable, err.Error())
	case errors.Is(err, activity.ErrNoHostSession):
		return platform.NewChannelError(CodeNoHostSession, err.Error())
	case errors.Is(err, activity.ErrExecutorClosed):
		return platform.NewChannelError(CodeUnavailable, err.Error())
	case errors.Is(err, platform.ErrInvalidArguments):
		return platform.NewChannelError(platform.CodeInvalidArguments, err.Error())
	case errors.As(err, &ce):
		return ce
	default:
		return platform.NewChannelError(platform.CodeError, err.Error())
	}
}
