package main

import (
	"flag"
	"log"
	"strings"

	"github.com/golang/glog"

	fx "github.com/robotalks/lowcar/pkg/framework"
	"github.com/robotalks/lowcar/pkg/link/mqtt"
	"github.com/robotalks/lowcar/pkg/lowcar/msgs"
)

func init() {
	mqtt.SetupFlags()
}

// direction names the sender of a record from its topic suffix.
func direction(topic string) string {
	switch {
	case strings.HasSuffix(topic, "/"+mqtt.TopicTx):
		return "host"
	case strings.HasSuffix(topic, "/"+mqtt.TopicRx):
		return "board"
	}
	return "?"
}

func main() {
	flag.Parse()
	defer glog.Flush()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewConfig().NewQueue()
	if err != nil {
		log.Fatalln(err)
	}
	if q == nil {
		log.Fatalln("MQTT broker URL required, use -mqtt or LOWCAR_MQTT_URL")
	}

	q.Sub("lowcar/+/+", mqtt.Handler(func(topic string, payload []byte) {
		var msg msgs.Message
		if err := msg.UnmarshalBinary(payload); err != nil {
			log.Printf("%s: bad record: %v", topic, err)
			return
		}
		log.Printf("%s: [%s] %s", topic, direction(topic), msg.String())
	}))

	runner := fx.NewRunner().HandleSignals().Go(q)
	if err := runner.Wait(); err != nil {
		log.Fatalln(err)
	}
}
