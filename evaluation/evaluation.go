package evaluation

import (
	"github.com/hupe1980/gadgetmesh/markup"
)

// Record is one labeled prediction. Prediction and Truth are raw markup
// documents; AlternativePrediction optionally carries a second sample for
// the same input, used to measure self-consistency of the final result.
type Record struct {
	Prediction            string
	Truth                 string
	AlternativePrediction string
}

// Report aggregates batch metrics over a slice of records. All ratios are
// in [0, 1]; means are arithmetic means over the batch.
type Report struct {
	// CorrectResults is the ratio of predictions whose final result matches
	// the true result under the numeric comparator.
	CorrectResults float64

	// Consistency is the ratio of predictions whose final result agrees
	// with the alternative prediction's result. Records without an
	// alternative count as consistent with themselves.
	Consistency float64

	// MeanGadgetCallsPred and MeanGadgetCallsTrue are the mean number of
	// gadget interactions per decoded chain.
	MeanGadgetCallsPred float64
	MeanGadgetCallsTrue float64

	// CorrectGadgetCallCount is the ratio of records where the prediction
	// used exactly as many gadget calls as the true chain.
	CorrectGadgetCallCount float64

	// MeanPredictionLength is the mean prediction length in bytes.
	MeanPredictionLength float64

	// Correct holds the per-record correctness indicator, in input order,
	// for downstream bootstrap estimation.
	Correct []float64
}

// Evaluate scores a batch of records. Undecodable markup degrades instead
// of failing: a malformed prediction contributes an empty result and zero
// gadget calls.
func Evaluate(records []Record) Report {
	if len(records) == 0 {
		return Report{}
	}

	report := Report{Correct: make([]float64, 0, len(records))}

	var (
		correct          int
		consistent       int
		callsPred        int
		callsTrue        int
		callCountMatches int
		totalLen         int
	)

	for _, rec := range records {
		predChain, predResult, predOK := decodeTolerant(rec.Prediction)
		trueChain, trueResult, trueOK := decodeTolerant(rec.Truth)

		isCorrect := predOK && trueOK && AreNumericResultsSame(predResult, trueResult)
		if isCorrect {
			correct++
			report.Correct = append(report.Correct, 1)
		} else {
			report.Correct = append(report.Correct, 0)
		}

		if rec.AlternativePrediction == "" {
			consistent++
		} else {
			_, altResult, altOK := decodeTolerant(rec.AlternativePrediction)
			if altOK == predOK && altResult == predResult {
				consistent++
			}
		}

		np := predChain.NumInteractions()
		nt := trueChain.NumInteractions()
		callsPred += np
		callsTrue += nt
		if np == nt {
			callCountMatches++
		}
		totalLen += len(rec.Prediction)
	}

	n := float64(len(records))
	report.CorrectResults = float64(correct) / n
	report.Consistency = float64(consistent) / n
	report.MeanGadgetCallsPred = float64(callsPred) / n
	report.MeanGadgetCallsTrue = float64(callsTrue) / n
	report.CorrectGadgetCallCount = float64(callCountMatches) / n
	report.MeanPredictionLength = float64(totalLen) / n
	return report
}

// ExtractResult pulls the final result out of a raw prediction document.
// With gadget markup enabled it decodes the document and uses the result
// tag; otherwise it falls back to the loose text extraction that also
// understands the result sentence form. The empty string signals absence
// either way.
func ExtractResult(text string, useGadgets bool) string {
	if useGadgets {
		_, result, _ := decodeTolerant(text)
		return result
	}
	return markup.GetResult(text)
}

func decodeTolerant(text string) (markup.Chain, string, bool) {
	chain, result, err := markup.Decode(text)
	if err != nil {
		return nil, "", false
	}
	return chain, result, result != ""
}
