package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rushteam/prodrec/recommend"
)

func newShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell <user_id>",
		Short: "Interactive menu: recommendations, buy a recommended product, history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withApp(ctx, func(a *app) error {
				svc, err := a.service(false)
				if err != nil {
					return err
				}
				sess, err := svc.NewSession(ctx, args[0])
				if err != nil {
					return err
				}
				return runShell(ctx, svc, sess, cmd.InOrStdin(), cmd.OutOrStdout())
			})
		},
	}
}

func runShell(ctx context.Context, svc *recommend.Service, sess *recommend.Session, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	prompt := func(msg string) (string, bool) {
		fmt.Fprint(out, msg)
		if !scanner.Scan() {
			return "", false
		}
		return strings.TrimSpace(scanner.Text()), true
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprintln(out, "\n1. Show recommendations\n2. Buy a recommended product\n3. Show purchase history\n4. Exit")
		choice, ok := prompt("> ")
		if !ok {
			return scanner.Err()
		}

		switch choice {
		case "1":
			res, err := sess.Recommend(ctx, svc)
			if err != nil {
				fmt.Fprintln(out, "error:", err)
				continue
			}
			printScored(out, res.Recommendations)
		case "2":
			if len(sess.LastRecommended) == 0 {
				fmt.Fprintln(out, "show recommendations first")
				continue
			}
			line, ok := prompt(fmt.Sprintf("number to buy (1-%d): ", len(sess.LastRecommended)))
			if !ok {
				return scanner.Err()
			}
			n, err := strconv.Atoi(line)
			if err != nil {
				fmt.Fprintln(out, "not a number")
				continue
			}
			res, err := sess.BuyRecommended(ctx, svc, n)
			if err != nil {
				fmt.Fprintln(out, "error:", err)
				continue
			}
			printBuy(out, res)
		case "3":
			products, err := svc.History(ctx, sess.UserID)
			if err != nil {
				fmt.Fprintln(out, "error:", err)
				continue
			}
			printHistory(out, products)
		case "4", "q", "exit":
			return nil
		default:
			fmt.Fprintln(out, "unknown option")
		}
	}
}
