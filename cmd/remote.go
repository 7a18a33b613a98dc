package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"realestate-marketplace-onchain/client"
	"realestate-marketplace-onchain/config"
	"realestate-marketplace-onchain/model"
)

var (
	ownedOnly  bool
	accountCmd = &cobra.Command{
		Use:                   "account [options]",
		Short:                 "Show the contract address and the connected account",
		DisableFlagsInUseLine: true,
		Args:                  cobra.NoArgs,
		RunE:                  runAccount,
	}
	viewCmd = &cobra.Command{
		Use:                   "view [options]",
		Short:                 "Show the active tab, account and fetched property lists",
		DisableFlagsInUseLine: true,
		Args:                  cobra.NoArgs,
		RunE:                  runView,
	}
	propertiesCmd = &cobra.Command{
		Use:                   "properties [options]",
		Short:                 "List all properties, or the connected account's with --owned",
		DisableFlagsInUseLine: true,
		Args:                  cobra.NoArgs,
		RunE:                  runProperties,
	}
	mintCmd = &cobra.Command{
		Use:                   "mint [options] <title> <location> <price>",
		Short:                 "Register a new property priced in ETH",
		DisableFlagsInUseLine: true,
		Args:                  cobra.ExactArgs(3),
		RunE:                  runMint,
	}
	listCmd = &cobra.Command{
		Use:                   "list [options] <id> <price>",
		Short:                 "Put a property up for sale at <price> ETH",
		DisableFlagsInUseLine: true,
		Args:                  cobra.ExactArgs(2),
		RunE:                  runList,
	}
	buyCmd = &cobra.Command{
		Use:                   "buy [options] <id>",
		Short:                 "Buy a listed property at its fetched price",
		DisableFlagsInUseLine: true,
		Args:                  cobra.ExactArgs(1),
		RunE:                  runBuy,
	}
	tabCmd = &cobra.Command{
		Use:                   "tab [options] <mint|buy|owned>",
		Short:                 "Switch the active tab and print the view state",
		DisableFlagsInUseLine: true,
		Args:                  cobra.ExactArgs(1),
		RunE:                  runTab,
	}
	txCmd = &cobra.Command{
		Use:                   "tx [options] <hash>",
		Short:                 "Show the status of a transaction",
		DisableFlagsInUseLine: true,
		Args:                  cobra.ExactArgs(1),
		RunE:                  runTx,
	}
)

func init() {
	for _, c := range []*cobra.Command{accountCmd, viewCmd, propertiesCmd, mintCmd, listCmd, buyCmd, tabCmd, txCmd} {
		c.Flags().StringVarP(&apiHost, "host", "", "", "Set API base URL (overrides API_URL)")
		rootCmd.AddCommand(c)
	}
	propertiesCmd.Flags().BoolVarP(&ownedOnly, "owned", "o", false, "Only properties owned by the connected account")
}

func newAPIClient() (*client.Client, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	url := cfg.Client.APIURL
	if apiHost != "" {
		url = apiHost
	}
	return client.NewClient(url, cfg.Client.Timeout), nil
}

func runAccount(cmd *cobra.Command, args []string) error {
	cli, err := newAPIClient()
	if err != nil {
		return err
	}
	info, err := cli.Info(cmd.Context())
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), info)
}

func runView(cmd *cobra.Command, args []string) error {
	cli, err := newAPIClient()
	if err != nil {
		return err
	}
	view, err := cli.View(cmd.Context())
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), view)
}

func runProperties(cmd *cobra.Command, args []string) error {
	cli, err := newAPIClient()
	if err != nil {
		return err
	}
	list, err := cli.Properties(cmd.Context(), ownedOnly)
	if err != nil {
		return err
	}
	printProperties(cmd.OutOrStdout(), list)
	return nil
}

func runMint(cmd *cobra.Command, args []string) error {
	cli, err := newAPIClient()
	if err != nil {
		return err
	}
	result, err := cli.Mint(cmd.Context(), args[0], args[1], args[2])
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), result)
}

func runList(cmd *cobra.Command, args []string) error {
	propertyID, err := parsePropertyID(args[0])
	if err != nil {
		return err
	}
	cli, err := newAPIClient()
	if err != nil {
		return err
	}
	result, err := cli.List(cmd.Context(), propertyID, args[1])
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), result)
}

func runBuy(cmd *cobra.Command, args []string) error {
	propertyID, err := parsePropertyID(args[0])
	if err != nil {
		return err
	}
	cli, err := newAPIClient()
	if err != nil {
		return err
	}
	result, err := cli.Buy(cmd.Context(), propertyID)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), result)
}

func runTab(cmd *cobra.Command, args []string) error {
	tab := model.Tab(args[0])
	if !tab.Valid() {
		return fmt.Errorf("%w: %q", model.ErrInvalidTab, args[0])
	}
	cli, err := newAPIClient()
	if err != nil {
		return err
	}
	view, err := cli.SelectTab(cmd.Context(), tab)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), view)
}

func runTx(cmd *cobra.Command, args []string) error {
	cli, err := newAPIClient()
	if err != nil {
		return err
	}
	v, err := cli.VerifyTransaction(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), v)
}

func parsePropertyID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid property id %q", s)
	}
	return id, nil
}

func printJSON(w io.Writer, v interface{}) error {
	bs, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(bs))
	return err
}

func printProperties(w io.Writer, list []model.Property) {
	_, _ = fmt.Fprintf(w, "%-6s %-24s %-24s %-14s %-44s %s\n", "ID", "Title", "Location", "Price (ETH)", "Owner", "For sale")
	for _, p := range list {
		_, _ = fmt.Fprintf(w, "%-6d %-24s %-24s %-14s %-44s %t\n",
			p.ID, p.Title, p.Location, model.FormatEther(p.Price), p.Owner, p.ForSale)
	}
}
