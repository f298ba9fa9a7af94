package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/relabs-tech/bmx160/internal/imu"
	"github.com/relabs-tech/bmx160/internal/orientation"
)

// RunConsoleMQTT prints every sample and pose published on the given topics
// until ctx is done.
func RunConsoleMQTT(ctx context.Context, sub Subscriber, topicSample, topicPose string, out io.Writer, logger *zap.SugaredLogger) error {
	var mu sync.Mutex // serializes writes from the callbacks

	if err := sub.Subscribe(topicSample, func(payload []byte) {
		var s imu.Sample
		if err := json.Unmarshal(payload, &s); err != nil {
			logger.Warnf("console: sample unmarshal error: %v", err)
			return
		}
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(out,
			"[IMU ]  mx=%7.2f my=%7.2f mz=%7.2f  gx=%7.2f gy=%7.2f gz=%7.2f  ax=%6.2f ay=%6.2f az=%6.2f\n",
			s.Mag[0], s.Mag[1], s.Mag[2], s.Gyro[0], s.Gyro[1], s.Gyro[2], s.Accel[0], s.Accel[1], s.Accel[2],
		)
	}); err != nil {
		return err
	}

	if err := sub.Subscribe(topicPose, func(payload []byte) {
		var p orientation.Pose
		if err := json.Unmarshal(payload, &p); err != nil {
			logger.Warnf("console: pose unmarshal error: %v", err)
			return
		}
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(out, "[POSE]  ROLL=%6.2f  PITCH=%6.2f  YAW=%6.2f\n", p.Roll, p.Pitch, p.Yaw)
	}); err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info("console: shutting down")
	return nil
}
