package cache

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/Combine-Capital/pgcache/pkg/database"
	"github.com/Combine-Capital/pgcache/pkg/errors"
	"github.com/Combine-Capital/pgcache/pkg/logging"
	"github.com/Combine-Capital/pgcache/pkg/metrics"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// provisioner makes sure the cache table exists before the first statement
// touches it. Once the table has been seen, the result is remembered for the
// lifetime of the provisioner; failures are not remembered.
type provisioner struct {
	db     database.Database
	loc    Location
	stmts  statements
	logger *logging.Logger

	ready atomic.Bool
	group singleflight.Group

	constraintName func() string
}

func newProvisioner(db database.Database, loc Location, logger *logging.Logger) *provisioner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &provisioner{
		db:             db,
		loc:            loc,
		stmts:          newStatements(loc),
		logger:         logger.WithLocation(loc.Schema, loc.Table),
		constraintName: primaryKeyName,
	}
}

// primaryKeyName generates a constraint name that cannot collide with one
// created for another table in the same schema.
func primaryKeyName() string {
	return "pk_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ensure returns once the table is known to exist. Concurrent callers share
// a single provisioning attempt. If that attempt was aborted by its own
// caller's context, the remaining callers start another one.
func (p *provisioner) ensure(ctx context.Context) error {
	for {
		if p.ready.Load() {
			return nil
		}

		ch := p.group.DoChan(p.loc.String(), func() (interface{}, error) {
			if p.ready.Load() {
				return nil, nil
			}
			if err := p.provision(ctx); err != nil {
				return nil, err
			}
			p.ready.Store(true)
			return nil, nil
		})

		select {
		case res := <-ch:
			if res.Err != nil && errors.IsCanceled(res.Err) && ctx.Err() == nil {
				continue
			}
			return res.Err
		case <-ctx.Done():
			return errors.NewCanceled("provision cache table", ctx.Err())
		}
	}
}

func (p *provisioner) provision(ctx context.Context) error {
	exists, err := p.exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		p.logger.Debug().Msg("cache table present")
		metrics.RecordProvision(metrics.ProvisionExisting)
		return nil
	}

	_, err = p.db.Exec(ctx, p.stmts.createTable(p.constraintName()))
	if err == nil {
		p.logger.Info().Msg("cache table created")
		metrics.RecordProvision(metrics.ProvisionCreated)
		return nil
	}

	if !database.IsDuplicateObject(err) {
		metrics.RecordProvision(metrics.ProvisionFailed)
		return database.Classify(err, "create cache table "+p.loc.String())
	}

	// Another session created the table between our check and our CREATE.
	exists, verr := p.exists(ctx)
	if verr != nil {
		return verr
	}
	if !exists {
		metrics.RecordProvision(metrics.ProvisionFailed)
		return errors.NewPermanent("cache table "+p.loc.String()+" could not be provisioned", err)
	}

	p.logger.Debug().Err(err).Msg("cache table created concurrently")
	metrics.RecordProvision(metrics.ProvisionRaced)
	return nil
}

func (p *provisioner) exists(ctx context.Context) (bool, error) {
	var exists bool
	if err := p.db.QueryRow(ctx, p.stmts.tableExists, p.loc.Schema, p.loc.Table).Scan(&exists); err != nil {
		return false, database.Classify(err, "check cache table "+p.loc.String())
	}
	return exists, nil
}
