package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/astroclash/server/internal/protocol"
)

func newRoomsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rooms",
		Short: "List joinable rooms on a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := client.Query(protocol.TypeRoomList, nil, protocol.TypeRoomList)
			if err != nil {
				return err
			}

			var result protocol.RoomListPayload
			if err := json.Unmarshal(raw, &result); err != nil {
				return fmt.Errorf("malformed room list: %w", err)
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}
