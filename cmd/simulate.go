package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/battrelay/battrelay/config"
	"github.com/battrelay/battrelay/infra/logger"
	"github.com/battrelay/battrelay/infra/mqtt"
)

var (
	simInterval time.Duration
	simCount    int
	simNoise    float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Publish synthetic battery samples to the configured broker",
	RunE:  simulate,
}

func init() {
	simulateCmd.Flags().DurationVar(&simInterval, "interval", 3*time.Second, "delay between samples")
	simulateCmd.Flags().IntVar(&simCount, "samples", 0, "number of samples to publish, 0 for unlimited")
	simulateCmd.Flags().Float64Var(&simNoise, "noise", 0.02, "sensor noise standard deviation")
	rootCmd.AddCommand(simulateCmd)
}

// simBattery tracks a synthetic lead-acid bank through a
// discharge-then-charge cycle.
type simBattery struct {
	capacityAh float64
	vMin, vMax float64
	soc        float64 // [0,1]
	current    float64 // amps, positive while discharging
}

// step advances the charge state by the elapsed interval and flips the
// current direction at the ends of the range.
func (b *simBattery) step(dt time.Duration) {
	b.soc -= b.current * dt.Hours() / b.capacityAh
	if b.soc < 0 {
		b.soc = 0
	}
	if b.soc > 1 {
		b.soc = 1
	}
	if b.soc <= 0.15 {
		b.current = -4.0 // switch to charging
	}
	if b.soc >= 0.95 {
		b.current = 2.5 // back to discharging
	}
}

func (b *simBattery) voltage() float64 {
	return b.vMin + b.soc*(b.vMax-b.vMin)
}

func simulate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logg := logger.New("simulator")

	mqttCfg := cfg.MQTT
	mqttCfg.ClientID = mqttCfg.ClientID + "-sim"
	opts, err := mqtt.NewClientOptions(mqttCfg)
	if err != nil {
		return fmt.Errorf("mqtt options: %w", err)
	}
	cli := paho.NewClient(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt connect: %w", token.Error())
	}
	defer cli.Disconnect(250)

	bat := &simBattery{
		capacityAh: cfg.Battery.CapacityAh,
		vMin:       cfg.Battery.VMin,
		vMax:       cfg.Battery.VMax,
		soc:        0.8,
		current:    2.5,
	}
	noise := distuv.Normal{Mu: 0, Sigma: simNoise}

	ticker := time.NewTicker(simInterval)
	defer ticker.Stop()
	sent := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			bat.step(simInterval)
			payload, err := json.Marshal(map[string]any{
				"voltage":   bat.voltage() + noise.Rand(),
				"current":   bat.current + noise.Rand(),
				"timestamp": time.Now().UnixMilli(),
			})
			if err != nil {
				return err
			}
			token := cli.Publish(mqttCfg.SampleTopic, 0, false, payload)
			token.Wait()
			if token.Error() != nil {
				logg.Errorf("publish sample: %v", token.Error())
				continue
			}
			sent++
			logg.Debugw("sample published", map[string]any{"soc": bat.soc, "sent": sent})
			if simCount > 0 && sent >= simCount {
				return nil
			}
		}
	}
}
