package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/astralab/astra/internal/astra/memory"
	"github.com/astralab/astra/internal/astra/store"
)

func init() {
	memoryCmd := &cobra.Command{
		Use:   "memory",
		Short: "Inspect and manage stored memory facts",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored facts, newest first",
		Run:   runMemoryList,
	}
	listCmd.Flags().StringP("search", "s", "", "Filter by key/value substring")

	rmCmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a fact by ID",
		Args:  cobra.ExactArgs(1),
		Run:   runMemoryRm,
	}

	editCmd := &cobra.Command{
		Use:   "edit <id> <key> <value>",
		Short: "Rewrite a fact's key and value",
		Args:  cobra.ExactArgs(3),
		Run:   runMemoryEdit,
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every stored fact",
		Run:   runMemoryClear,
	}

	memoryCmd.AddCommand(listCmd, rmCmd, editCmd, clearCmd)
	RootCmd.AddCommand(memoryCmd)
}

func runMemoryList(cmd *cobra.Command, args []string) {
	st, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer st.Close()
	mem := memory.NewManager(st, nil)

	search, _ := cmd.Flags().GetString("search")
	facts, err := listFacts(cmd, mem, search)
	if err != nil {
		exitErr("list facts", err)
	}

	out := cmd.OutOrStdout()
	if len(facts) == 0 {
		fmt.Fprintln(out, "no facts stored")
		return
	}
	for _, f := range facts {
		fmt.Fprintf(out, "%d\t%s\t%s\t%s\n", f.ID, f.Timestamp.Format("2006-01-02 15:04"), f.Key, f.Value)
	}
}

func listFacts(cmd *cobra.Command, mem *memory.Manager, search string) ([]store.MemoryFact, error) {
	if search != "" {
		return mem.Search(cmd.Context(), search)
	}
	return mem.All(cmd.Context())
}

func runMemoryRm(cmd *cobra.Command, args []string) {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		exitErr("parse id", err)
	}

	st, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer st.Close()

	if err := memory.NewManager(st, nil).Delete(cmd.Context(), id); err != nil {
		exitErr("delete fact", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted fact %d\n", id)
}

func runMemoryEdit(cmd *cobra.Command, args []string) {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		exitErr("parse id", err)
	}

	st, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer st.Close()

	fact := store.MemoryFact{ID: id, Key: args[1], Value: args[2]}
	if err := memory.NewManager(st, nil).Update(cmd.Context(), &fact); err != nil {
		exitErr("update fact", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "updated fact %d\n", id)
}

func runMemoryClear(cmd *cobra.Command, args []string) {
	st, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer st.Close()

	if err := memory.NewManager(st, nil).Clear(cmd.Context()); err != nil {
		exitErr("clear facts", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "all facts deleted")
}
