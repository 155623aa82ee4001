package probe

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/tuptime/pkg/models"
)

func TestFTPProberDefaultsToAnonymous(t *testing.T) {
	p := newFTPProber(models.ServiceConfig{
		Name:        "mirror",
		ServiceType: models.ServiceFTP,
		Target:      "ftp.local",
	})

	assert.Equal(t, "anonymous", p.username)
	assert.Equal(t, "anonymous", p.password)
	assert.Empty(t, p.dir)
}

func TestFTPProberKeepsConfiguredDirectory(t *testing.T) {
	p := newFTPProber(models.ServiceConfig{
		Name:        "mirror",
		ServiceType: models.ServiceFTP,
		Target:      "ftp.local",
		Location:    "/pub/releases",
		Username:    "mirror",
		Password:    "secret",
	})

	assert.Equal(t, "mirror", p.username)
	assert.Equal(t, "/pub/releases", p.dir)
}

func TestFTPProberUnreachable(t *testing.T) {
	p := &FTPProber{addr: closedAddr(t), username: "anonymous", password: "anonymous"}

	err := p.Check(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to reach")
}

func TestFTPProberHonorsBudget(t *testing.T) {
	// The server accepts but never sends its greeting; the deadline on
	// the dialed connection must end the attempt.
	p := &FTPProber{addr: silentAddr(t), username: "anonymous", password: "anonymous"}

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := p.Check(ctx)

	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}
