package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"lautenbacher.net/eyedancer/config"
	"lautenbacher.net/eyedancer/console"
	"lautenbacher.net/eyedancer/sequencer"
	"lautenbacher.net/eyedancer/store"
)

func newRootCmd() *cobra.Command {
	var cfile string

	root := &cobra.Command{
		Use:   "eyedancer",
		Short: "Animatronic eyes that blink, spin and spell",
		Long: `eyedancer drives a pair of animatronic eyes and a stage curtain.
Commands arrive as paths (/blink/3/200/100, /spell/HELLO/400/150/600, ...)
over HTTP or a serial line.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfile, "config", "c", config.CONFILE, "config file (.yml or .toml)")

	root.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Drive the real hardware",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfile, false)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "sim",
		Short: "Run the terminal simulation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfile, true)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Validate the config and print the letter gestures",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, cfile)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "boots",
		Short: "List the most recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBoots(cmd, cfile)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "ports",
		Short: "List the serial ports",
		RunE: func(cmd *cobra.Command, args []string) error {
			ports, err := console.Ports()
			if err != nil {
				return err
			}
			for _, p := range ports {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	})
	return root
}

func runCheck(cmd *cobra.Command, cfile string) error {
	conf, err := config.ReadConfig(cfile)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s is valid\n", cfile)
	fmt.Fprintf(out, "Letter mapping %q\n", conf.Spelling.Mapping)
	for _, line := range sequencer.GestureTable(conf.Spelling.Mapping) {
		fmt.Fprintln(out, "  "+line)
	}
	return nil
}

func runBoots(cmd *cobra.Command, cfile string) error {
	conf, err := config.ReadConfig(cfile)
	if err != nil {
		return err
	}
	st, err := store.Open(conf.Store.Dir)
	if err != nil {
		return err
	}
	defer st.Close()

	boots, err := st.Boots(20)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tVERSION\tSTARTED\tSTOPPED")
	for _, b := range boots {
		stopped := "-"
		if !b.StoppedAt.IsZero() {
			stopped = b.StoppedAt.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", b.ID, b.Version, b.StartedAt.Format("2006-01-02 15:04:05"), stopped)
	}
	return w.Flush()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
