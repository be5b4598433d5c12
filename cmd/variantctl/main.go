package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fekuna/omnipos-variant-service/config"
	"github.com/fekuna/omnipos-variant-service/internal/logger"
	"github.com/fekuna/omnipos-variant-service/internal/variant"
	"github.com/fekuna/omnipos-variant-service/internal/variant/dto"
	variantRepoPkg "github.com/fekuna/omnipos-variant-service/internal/variant/repository"
	variantUCPkg "github.com/fekuna/omnipos-variant-service/internal/variant/usecase"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// command describes a CLI subcommand.
type command struct {
	name  string
	short string
	usage string
	long  string
	run   func(args []string) error
}

var commands = []command{
	{
		name:  "seed",
		short: "Create products and attributes from a YAML file",
		usage: "variantctl seed <file.yaml>",
		long: `Create every product listed in the file together with its attribute
definitions, in file order, and print the new ids.

Example file:

  products:
    - merchant_id: m-1
      name: Premium Hair Shampoo
      attributes:
        - name: Color
          variant_defining: true
        - name: Size
          variant_defining: true
`,
		run: runSeed,
	},
	{
		name:  "attrs",
		short: "List the attribute definitions of a product",
		usage: "variantctl attrs <product-id>",
		long: `List the attribute definitions of a product in definition order.
`,
		run: runAttrs,
	},
	{
		name:  "add",
		short: "Add a variant through the interactive wizard",
		usage: "variantctl add <product-id>",
		long: `Open the variant wizard for a new variant of the product.

Step 1 picks the attributes that define the variant and their values:
  up/down   move        space   select or deselect
  enter     edit value  tab     continue

Step 2 sets the name, code and default flag:
  tab       next field  ctrl+r  regenerate the code
  space     toggle default (on the default field)
  enter     save        shift+tab  back

esc or ctrl+c cancels the wizard at any time.
`,
		run: runAdd,
	},
	{
		name:  "edit",
		short: "Edit a variant through the interactive wizard",
		usage: "variantctl edit <variant-id>",
		long: `Open the variant wizard preloaded with a saved variant. The keys are the
same as for 'variantctl add'. The saved code is kept unless you regenerate it.
`,
		run: runEdit,
	},
	{
		name:  "list",
		short: "List the variants of a product",
		usage: "variantctl list [-active] [-verified] <product-id>",
		long: `List the variants of a product, oldest first.

  -active     only active variants
  -verified   only verified variants
`,
		run: runList,
	},
	{
		name:  "verify",
		short: "Verify or unverify a variant",
		usage: "variantctl verify <variant-id> <on|off> <role>",
		long: `Change the verification flag of a variant. Only the admin, owner and qa
roles may do this.
`,
		run: runVerify,
	},
	{
		name:  "derive",
		short: "Preview the code of a variant",
		usage: "variantctl derive -product <id> [-attr Name=Value]... | [-name N -color C -size S -unit U]",
		long: `Print the code a variant would get, without saving anything.

With one or more -attr flags the code is built from the attribute values in
the order given. Otherwise it is built from -name and the optional -color,
-size and -unit.
`,
		run: runDerive,
	},
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "variantctl - manage product variants\n\n")
	fmt.Fprintf(w, "Usage:\n  variantctl <command> [arguments]\n\n")
	fmt.Fprintf(w, "Commands:\n")
	for _, cmd := range commands {
		fmt.Fprintf(w, "  %-10s %s\n", cmd.name, cmd.short)
	}
	fmt.Fprintf(w, "\nRun 'variantctl help <command>' for details on a specific command.\n")
}

func printCommandHelp(w io.Writer, name string) {
	for _, cmd := range commands {
		if cmd.name == name {
			fmt.Fprintf(w, "Usage: %s\n\n%s", cmd.usage, cmd.long)
			return
		}
	}
	fmt.Fprintf(w, "variantctl: unknown command %q\n\nRun 'variantctl help' for usage.\n", name)
}

func dispatch(args []string) error {
	if len(args) == 0 || args[0] == "--help" || args[0] == "-h" {
		printUsage(os.Stdout)
		return nil
	}
	if args[0] == "help" {
		if len(args) >= 2 {
			printCommandHelp(os.Stdout, args[1])
		} else {
			printUsage(os.Stdout)
		}
		return nil
	}
	for _, cmd := range commands {
		if cmd.name == args[0] {
			return cmd.run(args[1:])
		}
	}
	return fmt.Errorf("unknown command %q\n\nRun 'variantctl help' for usage.", args[0])
}

// openUseCase connects to the configured database. The CLI talks to the
// catalog only; cache, events and search belong to the running service.
func openUseCase() (variant.UseCase, func(), error) {
	_ = godotenv.Load()
	cfg := config.LoadEnv()

	level := os.Getenv("VARIANTCTL_LOG_LEVEL")
	if level == "" {
		level = "error"
	}
	appLogger := logger.NewZapLogger(&logger.ZapLoggerConfig{
		Encoding:          "console",
		Level:             level,
		DisableCaller:     true,
		DisableStacktrace: true,
	})

	ctx := context.Background()
	db, err := sqlx.Connect(cfg.Database.Driver, cfg.Database.DataSourceName())
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	if err := variantRepoPkg.ApplySchema(ctx, db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("apply schema: %w", err)
	}

	uc := variantUCPkg.NewVariantUseCase(variantRepoPkg.NewSQLRepository(db), nil, nil, nil, appLogger, cfg.Wizard.RegenerateDelay)
	closeFn := func() {
		appLogger.Sync()
		db.Close()
	}
	return uc, closeFn, nil
}

// ---------------------------------------------------------------------------
// seed
// ---------------------------------------------------------------------------

func runSeed(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: variantctl seed <file.yaml>")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	seed, err := parseSeed(data)
	if err != nil {
		return err
	}

	uc, closeFn, err := openUseCase()
	if err != nil {
		return err
	}
	defer closeFn()

	return applySeed(context.Background(), uc, seed, os.Stdout)
}

// ---------------------------------------------------------------------------
// attrs
// ---------------------------------------------------------------------------

func runAttrs(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: variantctl attrs <product-id>")
	}
	uc, closeFn, err := openUseCase()
	if err != nil {
		return err
	}
	defer closeFn()

	ctx := context.Background()
	if _, err := uc.GetProduct(ctx, args[0]); err != nil {
		return err
	}
	defs, err := uc.ListAttributes(ctx, args[0])
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tORDER\tDEFINING")
	for _, d := range defs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", d.ID, d.Name, d.SortOrder, yesNo(d.IsVariantDefining))
	}
	return tw.Flush()
}

// ---------------------------------------------------------------------------
// add / edit
// ---------------------------------------------------------------------------

func runAdd(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: variantctl add <product-id>")
	}
	uc, closeFn, err := openUseCase()
	if err != nil {
		return err
	}
	defer closeFn()

	ctx := context.Background()
	codes := make(chan string, 1)
	w, err := uc.OpenAddWizard(ctx, args[0], wizardOptions(codes))
	if err != nil {
		return err
	}
	return runWizard(ctx, w, codes)
}

func runEdit(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: variantctl edit <variant-id>")
	}
	uc, closeFn, err := openUseCase()
	if err != nil {
		return err
	}
	defer closeFn()

	ctx := context.Background()
	codes := make(chan string, 1)
	w, err := uc.OpenEditWizard(ctx, args[0], wizardOptions(codes))
	if err != nil {
		return err
	}
	return runWizard(ctx, w, codes)
}

// ---------------------------------------------------------------------------
// list
// ---------------------------------------------------------------------------

func runList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	onlyActive := fs.Bool("active", false, "only active variants")
	onlyVerified := fs.Bool("verified", false, "only verified variants")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: variantctl list [-active] [-verified] <product-id>")
	}

	uc, closeFn, err := openUseCase()
	if err != nil {
		return err
	}
	defer closeFn()

	variants, err := uc.ListVariants(context.Background(), &dto.VariantFilters{
		ProductID:    fs.Arg(0),
		OnlyActive:   *onlyActive,
		OnlyVerified: *onlyVerified,
	})
	if err != nil {
		return err
	}
	if len(variants) == 0 {
		fmt.Printf("no variants for product %q\n", fs.Arg(0))
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCODE\tNAME\tDEFAULT\tACTIVE\tVERIFIED")
	for _, v := range variants {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			v.ID, v.Code, v.Name, yesNo(v.IsDefault), yesNo(v.IsActive), yesNo(v.IsVerified))
	}
	return tw.Flush()
}

// ---------------------------------------------------------------------------
// verify
// ---------------------------------------------------------------------------

func runVerify(args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: variantctl verify <variant-id> <on|off> <role>")
	}
	verified, err := parseOnOff(args[1])
	if err != nil {
		return err
	}

	uc, closeFn, err := openUseCase()
	if err != nil {
		return err
	}
	defer closeFn()

	v, err := uc.SetVariantVerified(context.Background(), &dto.SetVerifiedInput{
		VariantID: args[0],
		Verified:  verified,
		ActorID:   os.Getenv("USER"),
		Role:      args[2],
	})
	if err != nil {
		return err
	}
	fmt.Printf("variant %s (%s) verified=%t\n", v.ID, v.Code, v.IsVerified)
	return nil
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "yes":
		return true, nil
	case "off", "false", "no":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}

// ---------------------------------------------------------------------------
// derive
// ---------------------------------------------------------------------------

// attrFlags collects repeated -attr Name=Value flags.
type attrFlags []dto.AttributeValueInput

func (a *attrFlags) String() string {
	parts := make([]string, len(*a))
	for i, av := range *a {
		parts[i] = av.Name + "=" + av.Value
	}
	return strings.Join(parts, ",")
}

func (a *attrFlags) Set(s string) error {
	name, value, ok := strings.Cut(s, "=")
	if !ok {
		return fmt.Errorf("expected Name=Value, got %q", s)
	}
	*a = append(*a, dto.AttributeValueInput{Name: strings.TrimSpace(name), Value: value})
	return nil
}

func parseDeriveArgs(args []string) (*dto.DeriveCodeInput, error) {
	input := &dto.DeriveCodeInput{}
	var attrs attrFlags

	fs := flag.NewFlagSet("derive", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&input.ProductID, "product", "", "product id")
	fs.Var(&attrs, "attr", "attribute value as Name=Value, repeatable")
	fs.StringVar(&input.Name, "name", "", "variant name")
	fs.StringVar(&input.Color, "color", "", "color")
	fs.StringVar(&input.Size, "size", "", "size")
	fs.StringVar(&input.SizeUnit, "unit", "", "size unit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if input.ProductID == "" {
		return nil, fmt.Errorf("usage: variantctl derive -product <id> [-attr Name=Value]...")
	}
	input.Attributes = attrs
	return input, nil
}

func runDerive(args []string) error {
	input, err := parseDeriveArgs(args)
	if err != nil {
		return err
	}

	uc, closeFn, err := openUseCase()
	if err != nil {
		return err
	}
	defer closeFn()

	code, err := uc.DeriveCode(context.Background(), input)
	if err != nil {
		return err
	}
	fmt.Println(code)
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func main() {
	if err := dispatch(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
