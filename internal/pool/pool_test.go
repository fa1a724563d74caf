package pool

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jholliman/vantage/internal/errors"
	"github.com/jholliman/vantage/internal/logger"
	"github.com/jholliman/vantage/internal/profile"
	"github.com/jholliman/vantage/pkg/sshutil"
	sshtesting "github.com/jholliman/vantage/pkg/sshutil/testing"
)

func prof(host string) profile.Profile {
	return profile.Profile{Hostname: host, Username: "deploy", Password: "pw", Port: 22}
}

// dialMocks returns a dialer producing fresh mock sessions and a record of
// every session it created.
func dialMocks() (DialFunc, *[]*sshtesting.MockSession) {
	created := &[]*sshtesting.MockSession{}
	dial := func(p profile.Profile) (sshutil.Session, error) {
		m := sshtesting.NewMockSession()
		*created = append(*created, m)
		return m, nil
	}
	return dial, created
}

func TestConnectStoresSession(t *testing.T) {
	dial, _ := dialMocks()
	p := New(WithDialer(dial), WithLogger(logger.Noop()))

	id, err := p.Connect(prof("web1"))
	require.NoError(t, err)
	assert.Equal(t, "deploy@web1:22", id.String())
	assert.Equal(t, 1, p.Size())

	entry, ok := p.Get(id)
	require.True(t, ok)
	assert.Equal(t, id, entry.Identity)
	assert.False(t, entry.ConnectedSince.IsZero())
}

func TestConnectReplacesAndClosesPrior(t *testing.T) {
	dial, created := dialMocks()
	p := New(WithDialer(dial), WithLogger(logger.Noop()))

	id1, err := p.Connect(prof("web1"))
	require.NoError(t, err)
	_, err = p.Connect(prof("web1"))
	require.NoError(t, err)

	// Same identity: the first session must be closed, pool size unchanged.
	assert.Equal(t, 1, p.Size())
	require.Len(t, *created, 2)
	assert.True(t, (*created)[0].Closed())
	assert.False(t, (*created)[1].Closed())

	entry, ok := p.Get(id1)
	require.True(t, ok)
	assert.Same(t, (*created)[1], entry.Session)
}

func TestConnectFailureLeavesPoolUntouched(t *testing.T) {
	dialErr := errors.New(errors.ErrAuth, "Authentication failed", "")
	dial := func(p profile.Profile) (sshutil.Session, error) {
		return nil, dialErr
	}
	p := New(WithDialer(dial), WithLogger(logger.Noop()))

	_, err := p.Connect(prof("web1"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrAuth))
	assert.Equal(t, 0, p.Size())
}

func TestGetAbsentIsNotAnError(t *testing.T) {
	p := New(WithLogger(logger.Noop()))
	_, ok := p.Get(profile.Identity{Hostname: "web1", Username: "deploy", Port: 22})
	assert.False(t, ok)
}

func TestDisconnectIdempotent(t *testing.T) {
	dial, created := dialMocks()
	p := New(WithDialer(dial), WithLogger(logger.Noop()))

	id, err := p.Connect(prof("web1"))
	require.NoError(t, err)

	p.Disconnect(id)
	assert.Equal(t, 0, p.Size())
	assert.True(t, (*created)[0].Closed())

	// Second disconnect is a no-op.
	p.Disconnect(id)
	assert.Equal(t, 0, p.Size())
}

func TestDisconnectSwallowsCloseError(t *testing.T) {
	dial, created := dialMocks()
	buf := logger.NewBufferLogger()
	p := New(WithDialer(dial), WithLogger(buf))

	id, err := p.Connect(prof("web1"))
	require.NoError(t, err)
	(*created)[0].FailClose(fmt.Errorf("broken pipe"))

	p.Disconnect(id)

	// Entry is gone and a warning was logged instead of an error propagating.
	assert.Equal(t, 0, p.Size())
	assert.True(t, buf.HasLevel("warn"))
}

func TestSwitchExclusivity(t *testing.T) {
	dial, created := dialMocks()
	p := New(WithDialer(dial), WithLogger(logger.Noop()))

	idA, err := p.Connect(prof("hostA"))
	require.NoError(t, err)

	idB, err := p.Switch(&idA, prof("hostB"))
	require.NoError(t, err)

	_, okA := p.Get(idA)
	entryB, okB := p.Get(idB)
	assert.False(t, okA, "old identity must be disconnected")
	require.True(t, okB)
	assert.NotNil(t, entryB.Session)
	assert.True(t, (*created)[0].Closed(), "old session must be closed before the new connect")
}

func TestSwitchWithoutOldIdentity(t *testing.T) {
	dial, _ := dialMocks()
	p := New(WithDialer(dial), WithLogger(logger.Noop()))

	id, err := p.Switch(nil, prof("hostB"))
	require.NoError(t, err)
	_, ok := p.Get(id)
	assert.True(t, ok)
}

type recordingSaver struct {
	saved []profile.Profile
}

func (r *recordingSaver) Save(p profile.Profile) error {
	r.saved = append(r.saved, p)
	return nil
}

func TestConnectUpsertsProfile(t *testing.T) {
	dial, _ := dialMocks()
	saver := &recordingSaver{}
	p := New(WithDialer(dial), WithProfileSaver(saver), WithLogger(logger.Noop()))

	_, err := p.Connect(prof("web1"))
	require.NoError(t, err)
	require.Len(t, saver.saved, 1)
	assert.Equal(t, "web1", saver.saved[0].Hostname)
}

func TestConnectFailureDoesNotSaveProfile(t *testing.T) {
	saver := &recordingSaver{}
	dial := func(p profile.Profile) (sshutil.Session, error) {
		return nil, errors.New(errors.ErrTimeout, "timed out", "")
	}
	p := New(WithDialer(dial), WithProfileSaver(saver), WithLogger(logger.Noop()))

	_, err := p.Connect(prof("web1"))
	require.Error(t, err)
	assert.Empty(t, saver.saved)
}

func TestCloseDisconnectsEverything(t *testing.T) {
	dial, created := dialMocks()
	p := New(WithDialer(dial), WithLogger(logger.Noop()))

	_, err := p.Connect(prof("web1"))
	require.NoError(t, err)
	_, err = p.Connect(prof("web2"))
	require.NoError(t, err)

	p.Close()
	assert.Equal(t, 0, p.Size())
	for _, m := range *created {
		assert.True(t, m.Closed())
	}
}

func TestPoolConcurrency(t *testing.T) {
	dial, _ := dialMocks()
	p := New(WithDialer(dial), WithLogger(logger.Noop()))
	done := make(chan bool)

	for i := 0; i < 10; i++ {
		go func(i int) {
			host := fmt.Sprintf("host%d", i%3)
			_, _ = p.Connect(prof(host))
			p.Size()
			p.Identities()
			p.Disconnect(profile.Identity{Hostname: host, Username: "deploy", Port: 22})
			done <- true
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}
	p.Close()
}
