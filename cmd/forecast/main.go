// Command forecast is a terminal client for the forecast API.
//
// Examples:
//
//	forecast -pincode 110001 -date 2025-06-02
//	forecast -pincode 110001 -week -start 2025-06-02
//	forecast -pincode 110001 -month 2025-06
//	forecast -compare 110001,400001,560001 -date 2025-06-02
//	forecast -list
//	forecast -retrain
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/enroll-data/footfall.report/internal/api"
	"github.com/enroll-data/footfall.report/internal/predict"
)

var (
	server  = flag.String("server", "http://localhost:8080", "Forecast API base URL")
	pincode = flag.String("pincode", "", "Pincode to forecast")
	date    = flag.String("date", "", "Target date (YYYY-MM-DD; default tomorrow)")
	start   = flag.String("start", "", "Range start date (YYYY-MM-DD; default tomorrow)")
	week    = flag.Bool("week", false, "7-day forecast")
	month   = flag.String("month", "", "Calendar-month forecast (YYYY-MM)")
	compare = flag.String("compare", "", "Comma-separated pincodes to compare")
	list    = flag.Bool("list", false, "List known pincodes")
	retrain = flag.Bool("retrain", false, "Trigger a retrain on the server")
)

func main() {
	flag.Parse()
	client := api.NewClient(*server, nil)

	switch {
	case *list:
		pincodes, err := client.Pincodes()
		if err != nil {
			log.Fatal(err)
		}
		for _, p := range pincodes {
			fmt.Println(p)
		}

	case *retrain:
		result, err := client.Retrain()
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("retrained: artifact %s\n", result["artifact_id"])

	case *compare != "":
		result, err := client.Compare(strings.Split(*compare, ","), *date)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("predicted footfall for %s\n", result.Date)
		for i, item := range result.Items {
			if item.Error != "" {
				fmt.Printf("  -- %s  failed: %s\n", item.Pincode, item.Error)
				continue
			}
			fmt.Printf("  %2d %s  %d\n", i+1, item.Pincode, item.Footfall)
		}

	case *pincode != "" && (*week || *month != ""):
		var fc predict.RangeForecast
		var err error
		if *month != "" {
			fc, err = client.PredictMonth(*pincode, *month)
		} else {
			fc, err = client.PredictWeek(*pincode, *start)
		}
		if err != nil {
			log.Fatal(err)
		}
		for _, day := range fc.Days {
			fmt.Printf("  %s  %d\n", day.Date, day.Footfall)
		}
		fmt.Printf("total %d, mean %.1f, peak %d on %s\n",
			fc.Total, fc.Mean, fc.Peak.Footfall, fc.Peak.Date)

	case *pincode != "":
		p, err := client.PredictDay(*pincode, *date)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("%s %s: %d\n", p.Pincode, p.Date, p.Footfall)
		for _, w := range p.Warnings {
			fmt.Printf("  warning: %s\n", w)
		}

	default:
		flag.Usage()
	}
}
