package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"nnfx-go/internal/config"
	"nnfx-go/internal/registry"
	"nnfx-go/internal/signal"
)

func main() {
	reader := bufio.NewReader(os.Stdin)

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	for {
		fmt.Println("\n=== NNFX Control ===")
		fmt.Println("1) Show configuration summary")
		fmt.Println("2) Edit account and risk knobs")
		fmt.Println("3) Edit indicators")
		fmt.Println("4) Save config")
		fmt.Println("5) Launch engine")
		fmt.Println("6) Evaluate on synthetic history")
		fmt.Println("7) Reload config from disk")
		fmt.Println("0) Exit")
		fmt.Print("Select option: ")

		input, _ := reader.ReadString('\n')
		switch strings.TrimSpace(input) {
		case "1":
			printSummary(cfg)
		case "2":
			editRisk(reader, cfg)
		case "3":
			editIndicators(reader, cfg)
		case "4":
			if err := cfg.Validate(); err != nil {
				fmt.Fprintf(os.Stderr, "not saved: %v\n", err)
			} else if err := saveConfig(cfg); err != nil {
				fmt.Fprintf(os.Stderr, "save failed: %v\n", err)
			} else {
				fmt.Println("config saved")
			}
		case "5":
			launch(reader, "./cmd/nnfx")
		case "6":
			launch(reader, "./cmd/evaluate", "-metric", "sqn")
		case "7":
			reloaded, err := loadConfig()
			if err != nil {
				fmt.Fprintf(os.Stderr, "reload failed: %v\n", err)
			} else {
				cfg = reloaded
				fmt.Println("config reloaded")
			}
		case "0":
			return
		default:
			fmt.Println("unknown option")
		}
	}
}

func printSummary(cfg *config.Config) {
	s := cfg.Strategy.WithDefaults()
	fmt.Println("\n--- Configuration Summary ---")
	fmt.Printf("Feed: %s %s [%s]\n", cfg.Feed.Provider, cfg.Feed.Interval, strings.Join(cfg.Feed.Symbols, ", "))
	fmt.Printf("Account: %s %.2f (max units %.0f)\n", cfg.Account.Currency, cfg.Account.StartingCash, cfg.Account.MaxUnits)
	fmt.Printf("Risk per trade: %.2f%% | ATR %d | SL %.2fx | TP %.2fx\n", s.RiskPercent, s.ATRPeriod, s.SLMultiple, s.TPMultiple)
	for _, r := range roles(cfg) {
		fmt.Printf("%-14s %s %v\n", r.label+":", r.spec.Name, r.spec.Params)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Problems: %v\n", err)
	}
}

func editRisk(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("\n--- Edit Account / Risk ---")
	cfg.Account.StartingCash = promptFloat(reader, "Starting cash", cfg.Account.StartingCash)
	cfg.Account.MaxUnits = promptFloat(reader, "Max units per trade (0 = no cap)", cfg.Account.MaxUnits)
	cfg.Strategy.RiskPercent = promptFloat(reader, "Risk per trade (%)", cfg.Strategy.RiskPercent)
	cfg.Strategy.ATRPeriod = int(promptFloat(reader, "ATR period", float64(cfg.Strategy.ATRPeriod)))
	cfg.Strategy.SLMultiple = promptFloat(reader, "Stop-loss ATR multiple", cfg.Strategy.SLMultiple)
	cfg.Strategy.TPMultiple = promptFloat(reader, "Take-profit ATR multiple", cfg.Strategy.TPMultiple)
}

type roleRef struct {
	label string
	role  signal.Role
	spec  *registry.Spec
}

func roles(cfg *config.Config) []roleRef {
	s := &cfg.Strategy
	return []roleRef{
		{"Baseline", signal.RoleBaseline, &s.Baseline},
		{"Confirmation1", signal.RoleConfirmation, &s.Confirmation1},
		{"Confirmation2", signal.RoleConfirmation, &s.Confirmation2},
		{"Volume", signal.RoleVolume, &s.Volume},
		{"Exit", signal.RoleExit, &s.Exit},
	}
}

func editIndicators(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("\n--- Edit Indicators ---")
	for _, r := range roles(cfg) {
		fmt.Printf("%s available: %s\n", r.label, strings.Join(registry.Available(r.role), ", "))
		fmt.Printf("%s [%s %v] (name then params, blank to keep): ", r.label, r.spec.Name, r.spec.Params)
		line, _ := reader.ReadString('\n')
		fields := strings.Fields(strings.ReplaceAll(line, ",", " "))
		if len(fields) == 0 {
			continue
		}
		next := registry.Spec{Name: fields[0]}
		for _, f := range fields[1:] {
			if v, err := strconv.ParseFloat(f, 64); err == nil {
				next.Params = append(next.Params, signal.N(v))
			} else {
				next.Params = append(next.Params, signal.S(f))
			}
		}
		if err := registry.Validate(r.role, next); err != nil {
			fmt.Printf("rejected: %v\n", err)
			continue
		}
		*r.spec = next
	}
}

func launch(reader *bufio.Reader, pkg string, args ...string) {
	fmt.Printf("Launching %s (ENTER to stop)...\n", pkg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := exec.CommandContext(ctx, "go", append([]string{"run", pkg}, args...)...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	if err := cmd.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start: %v\n", err)
		return
	}

	go func() {
		_ = cmd.Wait()
		cancel()
	}()

	fmt.Print("\nPress ENTER to stop and return to menu...")
	_, _ = reader.ReadString('\n')
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func promptFloat(reader *bufio.Reader, label string, current float64) float64 {
	fmt.Printf("%s [%.2f]: ", label, current)
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return current
	}
	val, err := strconv.ParseFloat(line, 64)
	if err != nil {
		fmt.Printf("invalid number, keeping %.2f\n", current)
		return current
	}
	return val
}

func loadConfig() (*config.Config, error) {
	return config.Load(locateConfig())
}

func saveConfig(cfg *config.Config) error {
	return config.Save(locateConfig(), cfg)
}

func locateConfig() string {
	if p := os.Getenv("NNFX_CONFIG"); p != "" {
		return filepath.Clean(p)
	}
	return filepath.Clean(config.DefaultPath)
}
