package healthcheck

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"syscall"
	"time"

	"github.com/pkg/errors"
)

const DefaultRetryInterval = 500 * time.Millisecond

var (
	ErrNotSocket = errors.New("path exists but is not a Unix socket")
	ErrTimeout   = errors.New("timeout waiting for readiness")
)

// WaitReady polls the socket at socketPath until its server publishes a
// Status, ctx is done, or a non-retryable error occurs.
func WaitReady(ctx context.Context, socketPath string, retryInterval time.Duration) (Status, error) {
	if retryInterval <= 0 {
		retryInterval = DefaultRetryInterval
	}

	for {
		status, ok, err := query(socketPath, retryInterval)
		if err != nil {
			return Status{}, err
		}
		if ok {
			return status, nil
		}

		select {
		case <-ctx.Done():
			return Status{}, errors.Wrap(ErrTimeout, ctx.Err().Error())
		case <-time.After(retryInterval):
		}
	}
}

// query makes a single attempt. A missing socket, a refused connection or
// a server that is still ingesting are not errors.
func query(socketPath string, timeout time.Duration) (Status, bool, error) {
	info, err := os.Stat(socketPath)
	if err != nil {
		if os.IsNotExist(err) {
			return Status{}, false, nil
		}
		return Status{}, false, errors.Wrap(err, "error checking socket")
	}
	if info.Mode()&os.ModeSocket == 0 {
		return Status{}, false, errors.Wrap(ErrNotSocket, socketPath)
	}

	conn, err := net.DialTimeout("unix", socketPath, timeout)
	if err != nil {
		if errors.Is(err, syscall.EACCES) {
			return Status{}, false, errors.Wrap(err, "failed connecting")
		}
		return Status{}, false, nil
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(timeout))

	var status Status
	if err := json.NewDecoder(conn).Decode(&status); err != nil {
		return Status{}, false, nil
	}

	return status, true, nil
}
