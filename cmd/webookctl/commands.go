package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/yashrajoria/webook/client"
	"github.com/yashrajoria/webook/store"
)

const (
	defaultAPIURL = "http://localhost:8080/api"
	// skipLogin marks commands that authenticate on their own.
	skipLogin = "skip-login"
)

type app struct {
	apiURL   string
	timeout  time.Duration
	email    string
	password string
	verbose  bool

	log   *zap.Logger
	store *store.Store
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "webookctl",
		Short:         "Manage the WeBook catalog, cart and accounts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.connect(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.apiURL, "api", envOr("WEBOOK_API_URL", defaultAPIURL), "base URL of the WeBook API")
	flags.DurationVar(&a.timeout, "timeout", 10*time.Second, "HTTP timeout per request")
	flags.StringVar(&a.email, "email", os.Getenv("WEBOOK_EMAIL"), "sign in with this email")
	flags.StringVar(&a.password, "password", "", "password (prompted when omitted, or read from WEBOOK_PASSWORD)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log requests and results")

	root.AddCommand(
		newBooksCmd(a),
		newStockCmd(a),
		newCartCmd(a),
		newCheckoutCmd(a),
		newUsersCmd(a),
		newRegisterCmd(a),
	)
	return root
}

// connect builds the client and store, signs in when an email is given
// and loads the catalog.
func (a *app) connect(cmd *cobra.Command) error {
	logCfg := zap.NewProductionConfig()
	logCfg.OutputPaths = []string{"stderr"}
	logCfg.ErrorOutputPaths = []string{"stderr"}
	if !a.verbose {
		logCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	log, err := logCfg.Build()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	a.log = log
	a.store = store.New(client.New(a.apiURL, a.timeout), log)

	if cmd.Annotations[skipLogin] == "" && a.email != "" {
		password, err := a.readPassword(cmd)
		if err != nil {
			return err
		}
		if err := a.store.Login(cmd.Context(), a.email, password); err != nil {
			return fmt.Errorf("login: %w", err)
		}
		a.log.Info("Signed in", zap.String("email", a.email))
	}
	return a.store.Load(cmd.Context())
}

func (a *app) readPassword(cmd *cobra.Command) (string, error) {
	if a.password != "" {
		return a.password, nil
	}
	if p := os.Getenv("WEBOOK_PASSWORD"); p != "" {
		return p, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("password required: use --password or WEBOOK_PASSWORD")
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}

func (a *app) requireUser() error {
	if a.store.State().User == nil {
		return errors.New("this command needs --email")
	}
	return nil
}

func newCheckoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "checkout",
		Short: "Buy everything in the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireUser(); err != nil {
				return err
			}
			a.store.SetView(store.ViewCart)
			total := a.store.CartTotal()
			err := a.store.Checkout(cmd.Context())
			if errors.Is(err, store.ErrEmptyCart) {
				return err
			}
			if err != nil {
				printCart(cmd, a.store.State())
				return fmt.Errorf("checkout incomplete: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Order placed, total %s\n", total)
			return nil
		},
	}
}

func newRegisterCmd(a *app) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:         "register",
		Short:       "Create an account with --email and --password",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipLogin: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.email == "" {
				return errors.New("--email is required")
			}
			password, err := a.readPassword(cmd)
			if err != nil {
				return err
			}
			if err := a.store.Register(cmd.Context(), name, a.email, password); err != nil {
				return err
			}
			u := a.store.State().User
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s (%s) as %s\n", u.Name, u.Email, u.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name (defaults to the email's local part)")
	return cmd
}

// parseAssignments parses ID=VALUE pairs in order.
func parseAssignments(args []string) ([]uint, []int, error) {
	ids := make([]uint, 0, len(args))
	values := make([]int, 0, len(args))
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, nil, fmt.Errorf("invalid %q: want ID=VALUE", arg)
		}
		id, err := parseID(k)
		if err != nil {
			return nil, nil, err
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, nil, fmt.Errorf("invalid value in %q", arg)
		}
		ids = append(ids, id)
		values = append(values, n)
	}
	return ids, values, nil
}

func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return uint(id), nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
