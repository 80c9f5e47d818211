package cmd

import (
	"github.com/spf13/cobra"

	"github.com/windbluesea/tacsim-agent/pkg/dis"
	"github.com/windbluesea/tacsim-agent/pkg/logger"
)

var parseCmd = &cobra.Command{
	Use:   "parse <capture>",
	Short: "Inspect a DIS binary capture",
	Long:  `Parse decodes a DIS binary capture and reports its frame and PDU counts.`,
	Args:  cobra.ExactArgs(1),
	RunE:  parseCapture,
}

func parseCapture(_ *cobra.Command, args []string) error {
	path := args[0]

	batches, err := dis.Parser{}.ParseFile(path)
	if err != nil {
		return err
	}

	entityCount := 0
	fireCount := 0
	for _, batch := range batches {
		entityCount += len(batch.EntityUpdates)
		fireCount += len(batch.FireEvents)
	}

	logger.LogKeyValue("输入文件", path)
	logger.LogKeyValue("时间帧数", len(batches))
	logger.LogKeyValue("实体状态PDU数量", entityCount)
	logger.LogKeyValue("开火PDU数量", fireCount)

	if len(batches) > 0 {
		logger.Debugf("时间范围 %d..%d", batches[0].TimestampMs, batches[len(batches)-1].TimestampMs)
	}
	return nil
}
