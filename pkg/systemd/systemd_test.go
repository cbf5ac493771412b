package systemd

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNotifyWithoutSocketIsNoop(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")
	ok, err := Ready()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestNotifySendsState(t *testing.T) {
	dir, err := os.MkdirTemp("", "sd")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	sock := filepath.Join(dir, "notify")
	conn, err := net.ListenUnixgram("unixgram", &net.UnixAddr{Name: sock, Net: "unixgram"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	t.Setenv("NOTIFY_SOCKET", sock)

	read := func() string {
		buf := make([]byte, 256)
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		n, _, err := conn.ReadFromUnix(buf)
		require.NoError(t, err)
		return string(buf[:n])
	}

	ok, err := Ready()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "READY=1", read())

	ok, err = Status("watching %d tasks", 3)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "STATUS=watching 3 tasks", read())

	_, err = Stopping()
	require.NoError(t, err)
	require.Equal(t, "STOPPING=1", read())
}
