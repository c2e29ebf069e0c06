// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roster Contributors

//go:build integration

package store_test

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/roster/roster/internal/store"
)

const insertAccount = `INSERT INTO accounts (id, email, handle, password_hash, role)
	VALUES ($1, $2, $3, 'x', $4)`

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

var _ = Describe("Schema", Ordered, func() {
	var (
		ctx       context.Context
		container *postgres.PostgresContainer
		connStr   string
		pool      *pgxpool.Pool
		migrator  *store.Migrator
	)

	BeforeAll(func() {
		ctx = context.Background()
		var err error
		container, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("roster_test"),
			postgres.WithUsername("roster"),
			postgres.WithPassword("roster"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second),
			),
		)
		Expect(err).NotTo(HaveOccurred())

		connStr, err = container.ConnectionString(ctx, "sslmode=disable")
		Expect(err).NotTo(HaveOccurred())

		pool, err = store.Open(ctx, connStr, store.PoolConfig{}, nil)
		Expect(err).NotTo(HaveOccurred())

		migrator, err = store.NewMigrator(connStr)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterAll(func() {
		if migrator != nil {
			_ = migrator.Close()
		}
		if pool != nil {
			pool.Close()
		}
		if container != nil {
			_ = container.Terminate(ctx)
		}
	})

	It("starts empty", func() {
		version, dirty, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(BeZero())
		Expect(dirty).To(BeFalse())

		pending, err := migrator.PendingMigrations()
		Expect(err).NotTo(HaveOccurred())
		Expect(pending).To(Equal([]uint{1, 2}))
	})

	It("applies all migrations", func() {
		Expect(migrator.Up()).To(Succeed())

		version, dirty, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal(uint(2)))
		Expect(dirty).To(BeFalse())
	})

	It("rejects emails differing only in case", func() {
		_, err := pool.Exec(ctx, insertAccount, "01J0000000000000000000000A", "ada@example.com", "ada", "ANONYMOUS")
		Expect(err).NotTo(HaveOccurred())

		_, err = pool.Exec(ctx, insertAccount, "01J0000000000000000000000B", "ADA@example.com", "ada2", "ANONYMOUS")
		Expect(pgCode(err)).To(Equal(pgerrcode.UniqueViolation))
	})

	It("rejects handles differing only in case", func() {
		_, err := pool.Exec(ctx, insertAccount, "01J0000000000000000000000C", "bob@example.com", "ADA", "ANONYMOUS")
		Expect(pgCode(err)).To(Equal(pgerrcode.UniqueViolation))
	})

	It("allows a single administrator", func() {
		_, err := pool.Exec(ctx, insertAccount, "01J0000000000000000000000D", "root@example.com", "root", "ADMIN")
		Expect(err).NotTo(HaveOccurred())

		_, err = pool.Exec(ctx, insertAccount, "01J0000000000000000000000E", "root2@example.com", "root2", "ADMIN")
		Expect(pgCode(err)).To(Equal(pgerrcode.UniqueViolation))
	})

	It("rejects unknown roles", func() {
		_, err := pool.Exec(ctx, insertAccount, "01J0000000000000000000000F", "eve@example.com", "eve", "SUPERUSER")
		Expect(pgCode(err)).To(Equal(pgerrcode.CheckViolation))
	})

	It("rolls back one step and forward again", func() {
		Expect(migrator.Steps(-1)).To(Succeed())
		version, _, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal(uint(1)))

		Expect(migrator.Steps(1)).To(Succeed())
		version, _, err = migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal(uint(2)))
	})

	It("drops everything on down", func() {
		Expect(migrator.Down()).To(Succeed())

		var exists bool
		err := pool.QueryRow(ctx, `SELECT to_regclass('public.accounts') IS NOT NULL`).Scan(&exists)
		Expect(err).NotTo(HaveOccurred())
		Expect(exists).To(BeFalse())
	})
})
