// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roster Contributors

//go:build integration

package cli_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
)

const seedYAML = `
accounts:
  - email: admin@example.com
    nickname: admin
    password: Adm1nPassword
  - email: grace@example.com
    nickname: grace
    password: Gr4cePassword
    is_professional: true
    verified: true
`

var _ = Describe("Seed Command", func() {
	var (
		ctx      context.Context
		seedPath string
	)

	BeforeEach(func() {
		ctx = context.Background()
		resetDatabase(ctx, env.pool)
		mustRoster(ctx, "migrate", "up")

		seedPath = filepath.Join(GinkgoT().TempDir(), "seed.yaml")
		Expect(os.WriteFile(seedPath, []byte(seedYAML), 0o600)).To(Succeed())
	})

	It("creates the listed accounts", func() {
		output := mustRoster(ctx, "seed", "--file", seedPath)
		Expect(output).To(ContainSubstring("Created admin@example.com (ADMIN)"))
		Expect(output).To(ContainSubstring("Created grace@example.com (AUTHENTICATED)"))
		Expect(output).To(ContainSubstring("Seeding complete: 2 created, 0 skipped"))

		var role string
		var verified, professional bool
		err := env.pool.QueryRow(ctx,
			"SELECT role, email_verified, is_professional FROM accounts WHERE handle = $1", "grace",
		).Scan(&role, &verified, &professional)
		Expect(err).NotTo(HaveOccurred())
		Expect(role).To(Equal("AUTHENTICATED"))
		Expect(verified).To(BeTrue())
		Expect(professional).To(BeTrue())
	})

	It("is idempotent (running twice succeeds without duplicates)", func() {
		mustRoster(ctx, "seed", "--file", seedPath)

		output := mustRoster(ctx, "seed", "--file", seedPath)
		Expect(output).To(ContainSubstring("Seeding complete: 0 created, 2 skipped"))

		var count int
		Expect(env.pool.QueryRow(ctx, "SELECT COUNT(*) FROM accounts").Scan(&count)).To(Succeed())
		Expect(count).To(Equal(2))
	})
})
