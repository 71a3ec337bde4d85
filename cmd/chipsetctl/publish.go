package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"chipset-go/types"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"
	"github.com/spf13/cobra"
)

var (
	mqttBroker      string
	mqttTopic       string
	mqttClientID    string
	publishInterval time.Duration
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish telemetry samples as JSON over MQTT",
	RunE: func(cmd *cobra.Command, _ []string) error {
		l, err := openLink()
		if err != nil {
			return err
		}
		defer l.Close()

		opts := paho.NewClientOptions().
			AddBroker(mqttBroker).
			SetClientID(mqttClientID).
			SetAutoReconnect(true).
			SetConnectionLostHandler(func(_ paho.Client, err error) {
				glog.Warningf("connection lost: %v", err)
			}).
			SetOnConnectHandler(func(paho.Client) { glog.Info("connected") })
		client := paho.NewClient(opts)
		if tok := client.Connect(); tok.Wait() && tok.Error() != nil {
			return fmt.Errorf("mqtt connect %s: %w", mqttBroker, tok.Error())
		}
		defer client.Disconnect(250)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		err = l.poll(ctx, publishInterval, 0, func(s types.Sample) error {
			return publishSample(client, mqttTopic, s)
		})
		if err == context.Canceled {
			return nil
		}
		return err
	},
}

func init() {
	f := publishCmd.Flags()
	f.StringVar(&mqttBroker, "broker", "tcp://localhost:1883", "MQTT broker URL")
	f.StringVar(&mqttTopic, "topic", "chipset/telemetry", "topic to publish on")
	f.StringVar(&mqttClientID, "client-id", "chipsetctl", "MQTT client id")
	f.DurationVar(&publishInterval, "interval", time.Second, "sampling interval")
	rootCmd.AddCommand(publishCmd)
}

// publisher is the slice of paho.Client used to send samples.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

func publishSample(c publisher, topic string, s types.Sample) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}
	tok := c.Publish(topic, 0, false, payload)
	tok.Wait()
	if err := tok.Error(); err != nil {
		glog.Warningf("publish %s: %v", topic, err)
		return nil
	}
	glog.V(2).Infof("PUB %q %s", topic, payload)
	return nil
}
