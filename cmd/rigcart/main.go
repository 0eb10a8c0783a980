// rigcart is the storefront CLI: a PC-build configurator, a cart with
// loyalty points, and a scenario runner.
//
// Usage:
//
//	rigcart build show                    Print the working build
//	rigcart build add <category> <id>     Put a component into a slot
//	rigcart build remove <category> [id]  Take a component out of a slot
//	rigcart build clear                   Start a fresh build
//	rigcart build rename <name>           Rename the working build
//	rigcart build save [name]             Snapshot the working build
//	rigcart build load <id>               Copy a saved build into the workspace
//	rigcart build delete <id>             Delete a saved build
//	rigcart build saved [id]              List saved builds, or show one
//	rigcart cart show                     Print the cart
//	rigcart cart add <product-id>         Add one unit of a product
//	rigcart cart add-build                Add the working build as one line
//	rigcart cart qty <product-id> <n>     Set a line's quantity
//	rigcart cart remove <product-id>      Remove a line
//	rigcart cart clear                    Empty the cart
//	rigcart points [--at <time>]          Summarize loyalty points
//	rigcart checkout [--json]             Summarize what the cart costs and earns
//	rigcart catalog [category]            List catalog entries
//	rigcart test [path]                   Run YAML/JSON scenarios
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wondertwin-ai/rigcart/internal/build"
	"github.com/wondertwin-ai/rigcart/internal/catalog"
	"github.com/wondertwin-ai/rigcart/internal/config"
	"github.com/wondertwin-ai/rigcart/internal/logging"
	"github.com/wondertwin-ai/rigcart/internal/metrics"
	"github.com/wondertwin-ai/rigcart/internal/outcome"
	"github.com/wondertwin-ai/rigcart/internal/persist"
	"github.com/wondertwin-ai/rigcart/internal/scenario"
	"github.com/wondertwin-ai/rigcart/internal/session"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

var errScenariosFailed = errors.New("one or more scenarios failed")

// app carries what every session-backed command needs.
type app struct {
	out     io.Writer
	cfg     *config.Config
	logger  *zap.Logger
	sess    *session.Session
	metrics *metrics.Collector
}

func main() {
	opts := parseArgs(os.Args[1:])

	if opts.cmd == "" || opts.cmd == "help" || opts.cmd == "--help" || opts.cmd == "-h" {
		printUsage()
		if opts.cmd == "" {
			os.Exit(1)
		}
		return
	}
	if opts.cmd == "version" || opts.cmd == "--version" || opts.cmd == "-v" {
		fmt.Printf("rigcart version %s\n", version)
		return
	}

	if err := run(context.Background(), os.Stdout, opts); err != nil {
		fmt.Fprintf(os.Stderr, "rigcart: %v\n", err)
		os.Exit(1)
	}
}

// cliOptions is the parsed command line.
type cliOptions struct {
	cmd         string
	args        []string
	configPath  string
	showMetrics bool
}

// parseArgs extracts the subcommand, positional args, and global flags.
func parseArgs(raw []string) cliOptions {
	var opts cliOptions
	var filtered []string
	for i := 0; i < len(raw); i++ {
		switch {
		case raw[i] == "--config" && i+1 < len(raw):
			opts.configPath = raw[i+1]
			i++
		case raw[i] == "--metrics":
			opts.showMetrics = true
		default:
			filtered = append(filtered, raw[i])
		}
	}
	opts.configPath = config.Path(opts.configPath)

	if len(filtered) > 0 {
		opts.cmd = filtered[0]
		opts.args = filtered[1:]
	}
	return opts
}

func printUsage() {
	fmt.Printf(`rigcart %s

Usage:
  rigcart [--config <path>] [--metrics] <command> [arguments]

Commands:
  build show                    Print the working build
  build add <category> <id>     Put a component into a slot
  build remove <category> [id]  Take a component out of a slot
  build clear                   Start a fresh build
  build rename <name>           Rename the working build
  build save [name]             Snapshot the working build
  build load <id>               Copy a saved build into the workspace
  build delete <id>             Delete a saved build
  build saved [id]              List saved builds, or show one
  cart show                     Print the cart
  cart add <product-id>         Add one unit of a product
  cart add-build                Add the working build as one line
  cart qty <product-id> <n>     Set a line's quantity (0 removes it)
  cart remove <product-id>      Remove a line
  cart clear                    Empty the cart
  points [--at <RFC3339>]       Summarize loyalty points
  checkout [--json]             Summarize what the cart costs and earns
  catalog [category]            List catalog entries
  test [path]                   Run scenarios (default: ./scenarios/)
  version                       Print the rigcart version

Options:
  --config <path>   Path to config (default: ./rigcart.yaml)
  --metrics         Print Prometheus metrics to stderr after the command

Environment:
  RIGCART_CONFIG          Override default config path
  RIGCART_STATE_BACKEND   file, memory, redis, or postgres
  RIGCART_LOG_LEVEL       debug, info, warn, or error
`, version)
}

// run loads configuration and dispatches cmd.
func run(ctx context.Context, out io.Writer, opts cliOptions) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	if opts.cmd == "test" {
		return cmdTest(ctx, out, cfg, logger, opts.args)
	}

	cat, err := catalog.LoadFile(cfg.Catalog)
	if err != nil {
		return err
	}

	a, err := openApp(ctx, out, cfg, cat, logger)
	if err != nil {
		return err
	}
	defer a.sess.Close()

	if err := a.dispatch(opts.cmd, opts.args); err != nil {
		return err
	}
	if opts.showMetrics {
		return a.metrics.WriteText(os.Stderr)
	}
	return nil
}

// openApp opens the configured backend and a session over it. A backend
// that cannot be opened leaves the session running in memory.
func openApp(ctx context.Context, out io.Writer, cfg *config.Config, cat catalog.Source, logger *zap.Logger) (*app, error) {
	mc := metrics.NewCollector("")
	popts := cfg.PersistOptions()
	backend, err := persist.Open(ctx, popts)
	if err != nil {
		logger.Warn("state backend unavailable, keeping state in memory",
			zap.String("backend", string(popts.Kind)),
			zap.Error(err))
		mc.RecordDegraded(string(popts.Kind))
		backend = nil
	}

	sess, err := session.Open(ctx, session.Options{
		Catalog:     cat,
		Backend:     backend,
		BackendName: string(popts.Kind),
		Policy:      cfg.Policy(),
		DefaultName: cfg.Build.DefaultName,
		Timeout:     cfg.State.Timeout,
		Logger:      logger,
		Metrics:     mc,
	})
	if err != nil {
		if backend != nil {
			backend.Close()
		}
		return nil, err
	}
	return &app{out: out, cfg: cfg, logger: logger, sess: sess, metrics: mc}, nil
}

func (a *app) dispatch(cmd string, args []string) error {
	switch cmd {
	case "build":
		return a.cmdBuild(args)
	case "cart":
		return a.cmdCart(args)
	case "points":
		return a.cmdPoints(args)
	case "checkout":
		return a.cmdCheckout(args)
	case "catalog":
		return a.cmdCatalog(args)
	default:
		return fmt.Errorf("unknown command %q (run rigcart help)", cmd)
	}
}

// report prints a mutation outcome. Rejections are not errors.
func (a *app) report(what string, o outcome.Outcome) {
	if o.Applied() {
		fmt.Fprintf(a.out, "%s: ok\n", what)
		return
	}
	fmt.Fprintf(a.out, "%s: %s\n", what, o)
}

// ---------------------------------------------------------------------------
// rigcart build
// ---------------------------------------------------------------------------

func (a *app) cmdBuild(args []string) error {
	if len(args) == 0 {
		return a.printBuild()
	}
	cfgr := a.sess.Build
	switch args[0] {
	case "show":
		return a.printBuild()
	case "add":
		if len(args) < 3 {
			return fmt.Errorf("usage: rigcart build add <category> <component-id>")
		}
		cat, err := catalog.ParseCategory(args[1])
		if err != nil {
			return err
		}
		a.report("add "+args[2], a.sess.AddComponent(cat, args[2]))
	case "remove":
		if len(args) < 2 {
			return fmt.Errorf("usage: rigcart build remove <category> [component-id]")
		}
		cat, err := catalog.ParseCategory(args[1])
		if err != nil {
			return err
		}
		id := ""
		if len(args) > 2 {
			id = args[2]
		}
		a.report("remove "+string(cat), cfgr.RemoveComponent(cat, id))
	case "clear":
		cfgr.ClearBuild()
		fmt.Fprintf(a.out, "started build %s\n", cfgr.Current().ID)
	case "rename":
		a.report("rename", cfgr.Rename(strings.Join(args[1:], " ")))
	case "save":
		id := cfgr.SaveBuild(strings.Join(args[1:], " "))
		fmt.Fprintf(a.out, "saved build %s\n", id)
	case "load":
		if len(args) < 2 {
			return fmt.Errorf("usage: rigcart build load <build-id>")
		}
		a.report("load "+args[1], cfgr.LoadBuild(args[1]))
	case "delete":
		if len(args) < 2 {
			return fmt.Errorf("usage: rigcart build delete <build-id>")
		}
		a.report("delete "+args[1], cfgr.DeleteBuild(args[1]))
	case "saved":
		if len(args) > 1 {
			return a.printSavedBuild(args[1])
		}
		a.printSaved()
	default:
		return fmt.Errorf("unknown build subcommand %q", args[0])
	}
	return nil
}

func (a *app) printBuild() error {
	cfgr := a.sess.Build
	b := cfgr.Current()

	fmt.Fprintf(a.out, "%s (%s)\n\n", b.Name, b.ID)
	a.printSlots(b)

	fmt.Fprintf(a.out, "\n  Total:    %s\n", cfgr.TotalPrice())
	fmt.Fprintf(a.out, "  Valid:    %t\n", cfgr.IsValid())
	fmt.Fprintf(a.out, "  Complete: %t\n", cfgr.IsComplete())
	if missing := b.Missing(); len(missing) > 0 {
		names := make([]string, len(missing))
		for i, m := range missing {
			names[i] = string(m)
		}
		fmt.Fprintf(a.out, "  Missing:  %s\n", strings.Join(names, ", "))
	}

	if findings := cfgr.Findings(); len(findings) > 0 {
		fmt.Fprintln(a.out)
		for _, f := range findings {
			fmt.Fprintf(a.out, "  %-7s %-16s %s\n", strings.ToUpper(string(f.Severity)), f.Rule, f.Message)
		}
	}
	return nil
}

// printSlots lists every category's occupants. Multi-slot categories show
// how many of their slots are in use.
func (a *app) printSlots(b build.Build) {
	policy := a.sess.Build.Policy()
	fmt.Fprintf(a.out, "  %-14s %-20s %-40s %10s\n", "CATEGORY", "ID", "TITLE", "PRICE")
	fmt.Fprintf(a.out, "  %-14s %-20s %-40s %10s\n", "--------", "--", "-----", "-----")
	for _, cat := range catalog.Categories {
		comps := b.Components(cat)
		label := string(cat)
		if !policy.Singular(cat) {
			max, _ := policy.Max(cat)
			label = fmt.Sprintf("%s %d/%d", cat, len(comps), max)
		}
		if len(comps) == 0 {
			fmt.Fprintf(a.out, "  %-14s %-20s %-40s %10s\n", label, "-", "", "")
			continue
		}
		for _, c := range comps {
			fmt.Fprintf(a.out, "  %-14s %-20s %-40s %10s\n", label, c.ID, c.Title, c.UnitPrice)
		}
	}
}

func (a *app) printSavedBuild(id string) error {
	b, ok := a.sess.Build.SavedBuild(id)
	if !ok {
		a.report("saved "+id, outcome.NotFound)
		return nil
	}
	fmt.Fprintf(a.out, "%s (%s)\n\n", b.Name, b.ID)
	a.printSlots(b)
	fmt.Fprintf(a.out, "\n  Total:    %s\n", b.TotalPrice)
	fmt.Fprintf(a.out, "  Valid:    %t\n", b.Valid)
	fmt.Fprintf(a.out, "  Saved:    %s\n", b.UpdatedAt.Format(time.RFC3339))
	return nil
}

func (a *app) printSaved() {
	saved := a.sess.Build.SavedBuilds()
	if len(saved) == 0 {
		fmt.Fprintln(a.out, "No saved builds.")
		return
	}
	fmt.Fprintf(a.out, "  %-38s %-30s %10s %-6s %s\n", "ID", "NAME", "TOTAL", "VALID", "SAVED")
	fmt.Fprintf(a.out, "  %-38s %-30s %10s %-6s %s\n", "--", "----", "-----", "-----", "-----")
	for _, b := range saved {
		fmt.Fprintf(a.out, "  %-38s %-30s %10s %-6t %s\n",
			b.ID, b.Name, b.TotalPrice, b.Valid, b.UpdatedAt.Format(time.RFC3339))
	}
}

// ---------------------------------------------------------------------------
// rigcart cart
// ---------------------------------------------------------------------------

func (a *app) cmdCart(args []string) error {
	if len(args) == 0 {
		a.printCart()
		return nil
	}
	c := a.sess.Cart
	switch args[0] {
	case "show":
		a.printCart()
	case "add":
		if len(args) < 2 {
			return fmt.Errorf("usage: rigcart cart add <product-id>")
		}
		a.report("add "+args[1], a.sess.AddProduct(args[1]))
	case "add-build":
		a.report("add build", a.sess.AddBuildToCart())
	case "qty":
		if len(args) < 3 {
			return fmt.Errorf("usage: rigcart cart qty <product-id> <quantity>")
		}
		n, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid quantity %q", args[2])
		}
		a.report("qty "+args[1], c.UpdateQuantity(args[1], n))
	case "remove":
		if len(args) < 2 {
			return fmt.Errorf("usage: rigcart cart remove <product-id>")
		}
		a.report("remove "+args[1], c.RemoveItem(args[1]))
	case "clear":
		c.ClearCart()
		fmt.Fprintln(a.out, "cart cleared")
	default:
		return fmt.Errorf("unknown cart subcommand %q", args[0])
	}
	return nil
}

func (a *app) printCart() {
	c := a.sess.Cart
	items := c.Items()
	if len(items) == 0 {
		fmt.Fprintln(a.out, "Cart is empty.")
		return
	}
	fmt.Fprintf(a.out, "  %-38s %-30s %4s %5s %10s\n", "PRODUCT", "TITLE", "QTY", "MAX", "SUBTOTAL")
	fmt.Fprintf(a.out, "  %-38s %-30s %4s %5s %10s\n", "-------", "-----", "---", "---", "--------")
	for _, it := range items {
		fmt.Fprintf(a.out, "  %-38s %-30s %4d %5d %10s\n",
			it.ProductID, it.Title, it.Quantity, it.StockCeiling, it.Subtotal())
	}
	fmt.Fprintf(a.out, "\n  Items: %d\n  Total: %s\n", c.TotalItems(), c.TotalPrice())
}

// ---------------------------------------------------------------------------
// rigcart points / checkout
// ---------------------------------------------------------------------------

func (a *app) cmdPoints(args []string) error {
	at := a.sess.Now()
	if len(args) >= 2 && args[0] == "--at" {
		t, err := time.Parse(time.RFC3339, args[1])
		if err != nil {
			return fmt.Errorf("invalid --at time %q: %w", args[1], err)
		}
		at = t
	}

	sum := a.sess.PointsAt(at)
	if len(sum.Breakdown) == 0 {
		fmt.Fprintln(a.out, "No loyalty offers in the cart.")
		return nil
	}
	fmt.Fprintf(a.out, "  %-38s %4s %6s %8s %s\n", "PRODUCT", "QTY", "EACH", "POINTS", "EXPIRES")
	fmt.Fprintf(a.out, "  %-38s %4s %6s %8s %s\n", "-------", "---", "----", "------", "-------")
	for _, l := range sum.Breakdown {
		expires := "-"
		if l.ExpiresAt != nil {
			expires = l.ExpiresAt.Format(time.RFC3339)
			if l.Expired {
				expires += " (expired)"
			}
		}
		fmt.Fprintf(a.out, "  %-38s %4d %6d %8d %s\n", l.ProductID, l.Quantity, l.PointsPerUnit, l.Points, expires)
	}
	fmt.Fprintf(a.out, "\n  Points to earn: %d\n", sum.TotalPointsToEarn)
	if sum.HasExpiredOffers {
		fmt.Fprintln(a.out, "  Some offers have expired.")
	}
	return nil
}

func (a *app) cmdCheckout(args []string) error {
	co := a.sess.Checkout()
	if len(args) > 0 && args[0] == "--json" {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(co)
	}
	a.printCart()
	if len(co.Items) > 0 {
		fmt.Fprintf(a.out, "  Points: %d\n", co.Points.TotalPointsToEarn)
	}
	return nil
}

// ---------------------------------------------------------------------------
// rigcart catalog
// ---------------------------------------------------------------------------

func (a *app) cmdCatalog(args []string) error {
	cat := a.sess.Catalog()
	cats := catalog.Categories
	if len(args) > 0 {
		if args[0] == "products" {
			a.printProducts(cat)
			return nil
		}
		c, err := catalog.ParseCategory(args[0])
		if err != nil {
			return err
		}
		cats = []catalog.Category{c}
	}

	fmt.Fprintf(a.out, "  %-12s %-20s %-40s %10s %5s\n", "CATEGORY", "ID", "TITLE", "PRICE", "STOCK")
	fmt.Fprintf(a.out, "  %-12s %-20s %-40s %10s %5s\n", "--------", "--", "-----", "-----", "-----")
	for _, c := range cats {
		for _, comp := range cat.Components(c) {
			fmt.Fprintf(a.out, "  %-12s %-20s %-40s %10s %5d\n", c, comp.ID, comp.Title, comp.UnitPrice, comp.Stock)
		}
	}
	if len(args) == 0 {
		fmt.Fprintln(a.out)
		a.printProducts(cat)
	}
	return nil
}

func (a *app) printProducts(cat catalog.Source) {
	fmt.Fprintf(a.out, "  %-20s %-40s %10s %5s %s\n", "PRODUCT", "TITLE", "PRICE", "STOCK", "POINTS")
	fmt.Fprintf(a.out, "  %-20s %-40s %10s %5s %s\n", "-------", "-----", "-----", "-----", "------")
	for _, p := range cat.Products() {
		points := "-"
		if p.PointsPerUnit != nil {
			points = strconv.FormatInt(*p.PointsPerUnit, 10)
		}
		fmt.Fprintf(a.out, "  %-20s %-40s %10s %5d %s\n", p.ID, p.Title, p.UnitPrice, p.Stock, points)
	}
}

// ---------------------------------------------------------------------------
// rigcart test
// ---------------------------------------------------------------------------

func cmdTest(ctx context.Context, out io.Writer, cfg *config.Config, logger *zap.Logger, args []string) error {
	path := "./scenarios/"
	if len(args) > 0 {
		path = args[0]
	}

	scenarios, err := scenario.LoadPath(path)
	if err != nil {
		return err
	}
	if len(scenarios) == 0 {
		fmt.Fprintf(out, "No scenarios found in %s\n", path)
		return nil
	}

	// Scenarios that do not name a catalog fall back to the configured one.
	var fallback catalog.Source
	if cat, err := catalog.LoadFile(cfg.Catalog); err == nil {
		fallback = cat
	} else {
		logger.Debug("configured catalog not loaded", zap.Error(err))
	}

	runner := scenario.NewRunner(fallback, logger.Named("scenario"))
	totalPassed, totalFailed := 0, 0
	for _, s := range scenarios {
		result, runErr := runner.Run(ctx, s)
		p, f := printScenarioResult(out, s.Name, s.Description, result, runErr)
		totalPassed += p
		totalFailed += f
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Results: %d passed, %d failed, %d total\n", totalPassed, totalFailed, totalPassed+totalFailed)
	if totalFailed > 0 {
		return errScenariosFailed
	}
	return nil
}

// printScenarioResult prints one scenario's steps and returns step counts.
func printScenarioResult(out io.Writer, name, description string, result *scenario.Result, err error) (passed, failed int) {
	fmt.Fprintf(out, "\n--- %s ---\n", name)
	if description != "" {
		fmt.Fprintf(out, "    %s\n", description)
	}
	fmt.Fprintln(out)

	if err != nil {
		fmt.Fprintf(out, "  ERROR: %v\n", err)
		return 0, 1
	}

	for _, sr := range result.Steps {
		if sr.Passed {
			fmt.Fprintf(out, "  PASS  %-50s (%s)\n", sr.Name, sr.Duration.Round(time.Millisecond))
			passed++
		} else {
			fmt.Fprintf(out, "  FAIL  %-50s (%s)\n", sr.Name, sr.Duration.Round(time.Millisecond))
			fmt.Fprintf(out, "        %s\n", sr.Error)
			failed++
		}
	}

	fmt.Fprintf(out, "\n  Scenario: %s (%s)\n", passFailLabel(result.Passed), result.Duration.Round(time.Millisecond))
	return passed, failed
}

func passFailLabel(passed bool) string {
	if passed {
		return "PASSED"
	}
	return "FAILED"
}
