package cmd

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/usefence/licensed/internal/config"
	"github.com/usefence/licensed/internal/license"
)

// LicenseCommand mints and inspects license codes offline.
func LicenseCommand() *cli.Command {
	secretFlag := &cli.StringFlag{
		Name:  "secret",
		Usage: "Signing secret (defaults to license.secret_key)",
	}
	return &cli.Command{
		Name:  "license",
		Usage: "Generate and verify license codes",
		Subcommands: []*cli.Command{
			{
				Name:  "generate",
				Usage: "Mint a license code",
				Flags: []cli.Flag{
					secretFlag,
					&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Value: "test@example.com"},
					&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Value: string(license.TypeStandard), Usage: "std or stu"},
					&cli.BoolFlag{Name: "store", Usage: "Also record the code in the ledger so it can be activated"},
				},
				Action: runLicenseGenerate,
			},
			{
				Name:      "verify",
				Usage:     "Check a license code and print its payload",
				ArgsUsage: "CODE",
				Flags:     []cli.Flag{secretFlag},
				Action:    runLicenseVerify,
			},
		},
	}
}

func codecFor(c *cli.Context) (*license.Codec, *config.Config, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}
	secret := c.String("secret")
	if secret == "" {
		secret = cfg.License.SecretKey
	}
	codec, err := license.NewCodec(secret)
	if err != nil {
		return nil, nil, fmt.Errorf("license.secret_key: %w", err)
	}
	return codec, cfg, nil
}

func runLicenseGenerate(c *cli.Context) error {
	codec, cfg, err := codecFor(c)
	if err != nil {
		return err
	}
	typ, err := license.ParseLicenseType(c.String("type"))
	if err != nil {
		return err
	}
	email := c.String("email")

	code, err := codec.Encode(email, typ, time.Now())
	if err != nil {
		return err
	}

	if c.Bool("store") {
		db, err := openLedgerDB(c.Context, cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		ledger := license.NewService(license.NewStorage(db), license.NewTrialClock(time.UTC))
		if _, err := ledger.Store(c.Context, code, email, typ); err != nil {
			return fmt.Errorf("store license: %w", err)
		}
	}

	fmt.Println(code)
	return nil
}

func runLicenseVerify(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: license verify CODE", 2)
	}
	codec, _, err := codecFor(c)
	if err != nil {
		return err
	}

	payload, err := codec.Decode(c.Args().First())
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid: %v", err), 1)
	}
	fmt.Printf("valid\n  email:  %s\n  type:   %s\n  issued: %s\n",
		payload.Email, payload.Type.Label(), payload.Issued().UTC().Format(time.RFC3339))
	return nil
}
