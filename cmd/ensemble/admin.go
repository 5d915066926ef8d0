package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"

	"github.com/ensembleapp/ensemble/internal/adapter/postgres"
	"github.com/ensembleapp/ensemble/internal/config"
	"github.com/ensembleapp/ensemble/internal/domain/identity"
	"github.com/ensembleapp/ensemble/internal/domain/tenant"
)

// runAdmin dispatches admin subcommands (create-tenant, list-tenants,
// suspend-tenant, unsuspend-tenant, grant-admin, migration-version).
func runAdmin(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printAdminHelp()
		return nil
	}

	switch args[0] {
	case "create-tenant":
		return runAdminCreateTenant(args[1:])
	case "list-tenants":
		return runAdminListTenants(args[1:])
	case "suspend-tenant":
		return runAdminSuspendTenant(args[1:])
	case "unsuspend-tenant":
		return runAdminUnsuspendTenant(args[1:])
	case "grant-admin":
		return runAdminGrantAdmin(args[1:])
	case "migration-version":
		return runAdminMigrationVersion(args[1:])
	default:
		printAdminHelp()
		return fmt.Errorf("unknown admin command: %s", args[0])
	}
}

func printAdminHelp() {
	fmt.Fprintf(os.Stderr, `Usage: ensemble admin <command> [options]

Commands:
  create-tenant      Create a new tenant
  list-tenants       List all tenants
  suspend-tenant     Suspend a tenant
  unsuspend-tenant   Lift a tenant suspension
  grant-admin        Grant a principal a tenant admin membership
  migration-version  Print the current schema migration version
  help               Show this help message

Examples:
  ensemble admin create-tenant --name "Maple Choir" --slug maple
  ensemble admin suspend-tenant --id <tenant-id> --reason "unpaid invoices"
  ensemble admin grant-admin --tenant <tenant-id> --principal <sub> --email lead@example.com --name "Lead Admin" --lead
  ensemble admin list-tenants
`)
}

func loadAdminStore() (*postgres.Store, *config.Config, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	return postgres.NewStore(pool), cfg, pool.Close, nil
}

func runAdminCreateTenant(args []string) error {
	fs := flag.NewFlagSet("create-tenant", flag.ContinueOnError)
	name := fs.String("name", "", "tenant display name (required)")
	slug := fs.String("slug", "", "URL-safe short name (required)")
	modules := fs.String("modules", "", "comma-separated feature modules (default: all)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	req := tenant.CreateRequest{Name: *name, Slug: *slug}
	if *modules != "" {
		req.Modules = strings.Split(*modules, ",")
	}
	if err := req.Validate(); err != nil {
		return err
	}

	store, _, cleanup, err := loadAdminStore()
	if err != nil {
		return err
	}
	defer cleanup()

	t, err := store.CreateTenant(context.Background(), req)
	if err != nil {
		return fmt.Errorf("create tenant: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Created tenant %s (%s)\n", t.Name, t.ID)
	return nil
}

func runAdminListTenants(args []string) error {
	fs := flag.NewFlagSet("list-tenants", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, _, cleanup, err := loadAdminStore()
	if err != nil {
		return err
	}
	defer cleanup()

	tenants, err := store.ListTenants(context.Background())
	if err != nil {
		return fmt.Errorf("list tenants: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSLUG\tSTATUS\tCREATED")
	for _, t := range tenants {
		status := "active"
		if t.Suspended {
			status = "suspended: " + t.SuspensionReason
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			t.ID, t.Name, t.Slug, status, t.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func runAdminSuspendTenant(args []string) error {
	fs := flag.NewFlagSet("suspend-tenant", flag.ContinueOnError)
	id := fs.String("id", "", "tenant ID (required)")
	reason := fs.String("reason", "", "suspension reason shown to blocked staff (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return fmt.Errorf("--id is required")
	}
	if *reason == "" {
		return fmt.Errorf("--reason is required")
	}

	store, _, cleanup, err := loadAdminStore()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := store.SetTenantSuspended(context.Background(), *id, true, *reason); err != nil {
		return fmt.Errorf("suspend tenant: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Suspended tenant %s\n", *id)
	return nil
}

func runAdminUnsuspendTenant(args []string) error {
	fs := flag.NewFlagSet("unsuspend-tenant", flag.ContinueOnError)
	id := fs.String("id", "", "tenant ID (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return fmt.Errorf("--id is required")
	}

	store, _, cleanup, err := loadAdminStore()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := store.SetTenantSuspended(context.Background(), *id, false, ""); err != nil {
		return fmt.Errorf("unsuspend tenant: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Unsuspended tenant %s\n", *id)
	return nil
}

func runAdminGrantAdmin(args []string) error {
	fs := flag.NewFlagSet("grant-admin", flag.ContinueOnError)
	tenantID := fs.String("tenant", "", "tenant ID (required)")
	principal := fs.String("principal", "", "principal subject from the credential provider (required)")
	email := fs.String("email", "", "admin email address (required)")
	name := fs.String("name", "", "display name (required)")
	lead := fs.Bool("lead", false, "mark as the tenant's lead administrator")
	modules := fs.String("modules", "", "comma-separated permitted modules (default: all)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	switch {
	case *tenantID == "":
		return fmt.Errorf("--tenant is required")
	case *principal == "":
		return fmt.Errorf("--principal is required")
	case *email == "":
		return fmt.Errorf("--email is required")
	case *name == "":
		return fmt.Errorf("--name is required")
	}

	perms := identity.AllModules()
	if *modules != "" {
		perms = identity.Subset(strings.Split(*modules, ",")...)
	}

	store, _, cleanup, err := loadAdminStore()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := context.Background()
	if _, err := store.GetTenant(ctx, *tenantID); err != nil {
		return fmt.Errorf("tenant lookup: %w", err)
	}

	now := time.Now().UTC()
	m := &identity.Membership{
		ID:             uuid.NewString(),
		TenantID:       *tenantID,
		PrincipalID:    *principal,
		Email:          *email,
		Role:           identity.RoleTenantAdmin,
		Permissions:    perms,
		PrincipalAdmin: *lead,
		DisplayName:    *name,
		AssignedAt:     now,
		UpdatedAt:      now,
	}
	if err := store.CreateMembership(ctx, m); err != nil {
		return fmt.Errorf("create membership: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Granted admin membership %s in tenant %s to %s\n", m.ID, *tenantID, *email)
	return nil
}

func runAdminMigrationVersion(args []string) error {
	fs := flag.NewFlagSet("migration-version", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	version, err := postgres.MigrationVersion(context.Background(), cfg.Postgres.DSN)
	if err != nil {
		return fmt.Errorf("migration version: %w", err)
	}

	fmt.Fprintf(os.Stdout, "%d\n", version)
	return nil
}
