package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// batchOperation is one line of batch input: an operation name plus its
// raw arguments, mirroring the teacher's RPC batch envelope shape.
type batchOperation struct {
	Operation string          `json:"operation"`
	Args      json.RawMessage `json:"args"`
}

type batchResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type batchArgs struct {
	Query string `json:"query"`
	Value string `json:"value"`
}

var batchCmd = &cobra.Command{
	Use:     "batch",
	GroupID: "ops",
	Short:   "Apply a sequence of mutations read as newline-delimited JSON",
	Long: `Batch reads one JSON operation per line from stdin and applies each in
order, printing one JSON result per line to stdout. Supported operations:

  archive    {"query": "<id>"}
  unarchive  {"query": "<id>"}
  rename     {"query": "<id>", "value": "<title>"}
  move       {"query": "<id>", "value": "<new-working-directory>"}
  delete     {"query": "<id>"}

A failed operation does not stop the batch; its result line records the
error and processing continues.

Example:
  printf '{"operation":"archive","args":{"query":"a1b2c3d4"}}\n' | tk batch
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := openFacade(cmd.Context())
		if err != nil {
			return err
		}
		defer h.Close()

		scanner := bufio.NewScanner(os.Stdin)
		enc := json.NewEncoder(os.Stdout)

		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}

			var op batchOperation
			if err := json.Unmarshal(line, &op); err != nil {
				_ = enc.Encode(batchResult{Success: false, Error: fmt.Sprintf("malformed operation: %v", err)})
				continue
			}

			res := applyBatchOp(cmd, h, op)
			_ = enc.Encode(res)
		}
		return scanner.Err()
	},
}

func applyBatchOp(cmd *cobra.Command, h *facadeHandle, op batchOperation) batchResult {
	var a batchArgs
	if err := json.Unmarshal(op.Args, &a); err != nil {
		return batchResult{Success: false, Error: fmt.Sprintf("malformed args: %v", err)}
	}

	ctx := cmd.Context()
	s, err := h.Facade.Find(ctx, a.Query)
	if err != nil {
		return batchResult{Success: false, Error: err.Error()}
	}

	switch op.Operation {
	case "archive":
		err = h.Facade.Archive(ctx, s.SessionID)
	case "unarchive":
		err = h.Facade.Unarchive(ctx, s.SessionID)
	case "rename":
		err = h.Facade.Rename(ctx, s.SessionID, a.Value)
	case "move":
		err = h.Facade.Move(ctx, s.SessionID, a.Value)
	case "delete":
		err = h.Facade.Delete(ctx, s.SessionID)
	default:
		return batchResult{Success: false, Error: fmt.Sprintf("unknown operation %q", op.Operation)}
	}
	if err != nil {
		return batchResult{Success: false, Error: err.Error()}
	}
	return batchResult{Success: true}
}

func init() {
	rootCmd.AddCommand(batchCmd)
}
