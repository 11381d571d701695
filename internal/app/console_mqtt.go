package app

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/mocap_retarget/internal/config"
	"github.com/relabs-tech/mocap_retarget/internal/pose"
)

// printFrame writes one line per bone: w x y z of the local rotation.
func printFrame(w io.Writer, f pose.Frame) {
	fmt.Fprintf(w, "[POSE] frame=%d time=%s bones=%d\n", f.Index, f.Time.Format("15:04:05.000"), len(f.Bones))
	for _, b := range f.Bones {
		q := b.Rotation
		fmt.Fprintf(w, "  %-12s W=%7.4f X=%7.4f Y=%7.4f Z=%7.4f\n", b.Name, q[0], q[1], q[2], q[3])
	}
}

// RunConsoleMQTT prints every retargeted pose published on TOPIC_POSE and
// logs animation signal changes.
func RunConsoleMQTT() error {
	cfg := config.Get()
	if cfg == nil {
		return fmt.Errorf("console: config not initialized")
	}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	// Subscribe to retargeted poses
	poseToken := client.Subscribe(cfg.TopicPose, 0, func(_ mqtt.Client, msg mqtt.Message) {
		f, err := pose.DecodeFrame(msg.Payload())
		if err != nil {
			log.Printf("console: pose unmarshal error: %v", err)
			return
		}
		printFrame(os.Stdout, f)
	})
	poseToken.Wait()
	if poseToken.Error() != nil {
		return poseToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicPose)

	// Subscribe to the animation signal
	animToken := client.Subscribe(cfg.TopicAnimation, 0, func(_ mqtt.Client, msg mqtt.Message) {
		on, err := parseAnimationSignal(msg.Payload())
		if err != nil {
			log.Printf("console: %v", err)
			return
		}
		fmt.Printf("[ANIM] active=%v\n", on)
	})
	animToken.Wait()
	if animToken.Error() != nil {
		return animToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicAnimation)

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}
