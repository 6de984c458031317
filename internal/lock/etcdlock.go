package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/logger"
	"go.etcd.io/etcd/api/v3/v3rpc/rpctypes"
	clientv3 "go.etcd.io/etcd/client/v3"
)

const keyPrefix = "/raffle/owners/"

// EtcdLock holds leased keys in etcd so that exactly one instance serves
// each event. Leases are kept alive until released or the process dies.
type EtcdLock struct {
	client   *clientv3.Client
	ttl      int64
	identity string

	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	leaseID clientv3.LeaseID
	key     string
	cancel  context.CancelFunc
}

func NewEtcdLock(endpoints []string, dialTimeout time.Duration, ttl time.Duration, identity string) (*EtcdLock, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: dialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client: %w", err)
	}
	seconds := int64(ttl / time.Second)
	if seconds < 2 {
		seconds = 2
	}
	return &EtcdLock{
		client:   cli,
		ttl:      seconds,
		identity: identity,
		locks:    make(map[string]*lockEntry),
	}, nil
}

func (el *EtcdLock) Acquire(ctx context.Context, name string) (bool, error) {
	el.mu.Lock()
	defer el.mu.Unlock()

	if _, ok := el.locks[name]; ok {
		return true, nil
	}

	key := keyPrefix + name
	lease := clientv3.NewLease(el.client)
	grant, err := lease.Grant(ctx, el.ttl)
	if err != nil {
		return false, fmt.Errorf("failed to grant lease: %w", err)
	}

	resp, err := el.client.Txn(ctx).
		If(clientv3.Compare(clientv3.CreateRevision(key), "=", 0)).
		Then(clientv3.OpPut(key, el.identity, clientv3.WithLease(grant.ID))).
		Commit()
	if err != nil {
		lease.Revoke(context.Background(), grant.ID)
		return false, fmt.Errorf("failed to claim %s: %w", key, err)
	}
	if !resp.Succeeded {
		lease.Revoke(context.Background(), grant.ID)
		return false, nil
	}

	keepAliveCtx, cancel := context.WithCancel(context.Background())
	go el.keepAlive(keepAliveCtx, name, grant.ID)

	el.locks[name] = &lockEntry{leaseID: grant.ID, key: key, cancel: cancel}
	return true, nil
}

func (el *EtcdLock) Release(ctx context.Context, name string) error {
	el.mu.Lock()
	defer el.mu.Unlock()
	return el.release(ctx, name)
}

func (el *EtcdLock) ReleaseAll(ctx context.Context) {
	el.mu.Lock()
	defer el.mu.Unlock()
	for name := range el.locks {
		if err := el.release(ctx, name); err != nil {
			logger.Warningf("[EtcdLock] Failed to release %s: %v", name, err)
		}
	}
}

func (el *EtcdLock) Close() error {
	el.ReleaseAll(context.Background())
	return el.client.Close()
}

func (el *EtcdLock) keepAlive(ctx context.Context, name string, leaseID clientv3.LeaseID) {
	lease := clientv3.NewLease(el.client)
	ticker := time.NewTicker(time.Duration(el.ttl) * time.Second / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := lease.KeepAliveOnce(ctx, leaseID); err != nil {
				if errors.Is(err, rpctypes.ErrLeaseNotFound) {
					logger.Errorf("[EtcdLock] Lease for %s expired, ownership lost", name)
				}
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// release must be called with el.mu held
func (el *EtcdLock) release(ctx context.Context, name string) error {
	entry, ok := el.locks[name]
	if !ok {
		return nil
	}
	entry.cancel()
	delete(el.locks, name)

	if _, err := el.client.Delete(ctx, entry.key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", entry.key, err)
	}
	if _, err := el.client.Revoke(ctx, entry.leaseID); err != nil {
		return fmt.Errorf("failed to revoke lease: %w", err)
	}
	return nil
}
