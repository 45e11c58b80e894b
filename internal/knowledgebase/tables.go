package knowledgebase

import "github.com/pharmaguard-server/internal/domain"

// defaultGenes holds the built-in pharmacogene tables. Guidance text follows the CPIC
// guideline summaries for each gene-drug pair.
var defaultGenes = []GeneEntry{
	{
		Name:   "CYP2C19",
		Family: domain.MetabolizerGene.String(),
		Alleles: map[string]domain.FunctionClass{
			"*1":  domain.NORMAL_FUNCTION,
			"*2":  domain.NO_FUNCTION,
			"*3":  domain.NO_FUNCTION,
			"*4":  domain.NO_FUNCTION,
			"*5":  domain.NO_FUNCTION,
			"*17": domain.INCREASED_FUNCTION,
		},
		Guidance: map[string]Guidance{
			domain.PoorMetabolizer:         {Level: "1A", Recommendation: "Avoid clopidogrel — use prasugrel or ticagrelor instead (FDA black-box warning)."},
			domain.IntermediateMetabolizer: {Level: "1A", Recommendation: "Consider alternative antiplatelet therapy; reduced clopidogrel efficacy."},
			domain.UltrarapidMetabolizer:   {Level: "1A", Recommendation: "PPIs may be less effective; consider H2 blockers or dose escalation."},
			domain.RapidMetabolizer:        {Level: "2A", Recommendation: "Monitor PPI efficacy; may need higher proton pump inhibitor doses."},
			domain.NormalMetabolizer:       {Level: "B", Recommendation: "Standard dosing for all CYP2C19-metabolised drugs."},
		},
	},
	{
		Name:   "CYP2D6",
		Family: domain.MetabolizerGene.String(),
		Alleles: map[string]domain.FunctionClass{
			"*1":  domain.NORMAL_FUNCTION,
			"*2":  domain.NORMAL_FUNCTION,
			"*4":  domain.NO_FUNCTION,
			"*5":  domain.NO_FUNCTION,
			"*10": domain.DECREASED_FUNCTION,
			"*17": domain.DECREASED_FUNCTION,
			"*41": domain.DECREASED_FUNCTION,
		},
		Guidance: map[string]Guidance{
			domain.PoorMetabolizer:         {Level: "1A", Recommendation: "Avoid codeine/tramadol (opioid toxicity). Avoid tamoxifen — reduced efficacy."},
			domain.IntermediateMetabolizer: {Level: "1A", Recommendation: "Use lower codeine doses with caution. Consider alternatives."},
			domain.UltrarapidMetabolizer:   {Level: "1A", Recommendation: "Codeine contraindicated — life-threatening morphine accumulation."},
			domain.NormalMetabolizer:       {Level: "B", Recommendation: "Standard dosing."},
			domain.RapidMetabolizer:        {Level: "2A", Recommendation: "Monitor for sub-therapeutic response with typical doses."},
		},
	},
	{
		Name:   "CYP2C9",
		Family: domain.MetabolizerGene.String(),
		Alleles: map[string]domain.FunctionClass{
			"*1": domain.NORMAL_FUNCTION,
			"*2": domain.DECREASED_FUNCTION,
			"*3": domain.DECREASED_FUNCTION,
			"*5": domain.NO_FUNCTION,
			"*6": domain.NO_FUNCTION,
		},
		Guidance: map[string]Guidance{
			domain.PoorMetabolizer:         {Level: "1A", Recommendation: "Reduce warfarin dose significantly. High bleeding risk at standard doses."},
			domain.IntermediateMetabolizer: {Level: "1A", Recommendation: "Start warfarin at reduced dose. Increase INR monitoring frequency."},
			domain.NormalMetabolizer:       {Level: "B", Recommendation: "Standard warfarin dosing."},
		},
	},
	{
		Name:   "SLCO1B1",
		Family: domain.TransporterGene.String(),
		Alleles: map[string]domain.FunctionClass{
			"*1a": domain.NORMAL_FUNCTION,
			"*1b": domain.NORMAL_FUNCTION,
			"*5":  domain.NO_FUNCTION,
			"*15": domain.NO_FUNCTION,
		},
		Guidance: map[string]Guidance{
			domain.PoorFunction:      {Level: "1A", Recommendation: "Avoid simvastatin >20mg/day — high myopathy risk. Use rosuvastatin or pravastatin."},
			domain.DecreasedFunction: {Level: "1A", Recommendation: "Limit simvastatin dose. Consider atorvastatin or rosuvastatin."},
			domain.NormalFunction:    {Level: "B", Recommendation: "Standard statin dosing."},
		},
	},
	{
		Name:   "TPMT",
		Family: domain.MetabolizerGene.String(),
		Alleles: map[string]domain.FunctionClass{
			"*1":  domain.NORMAL_FUNCTION,
			"*2":  domain.NO_FUNCTION,
			"*3A": domain.NO_FUNCTION,
			"*3C": domain.NO_FUNCTION,
		},
		Guidance: map[string]Guidance{
			domain.PoorMetabolizer:         {Level: "1A", Recommendation: "Avoid thiopurines (azathioprine, 6-MP) — fatal myelosuppression risk."},
			domain.IntermediateMetabolizer: {Level: "1A", Recommendation: "Reduce thiopurine dose by 30–70%. Monitor blood counts closely."},
			domain.NormalMetabolizer:       {Level: "B", Recommendation: "Standard thiopurine dosing."},
		},
	},
	{
		Name:   "DPYD",
		Family: domain.MetabolizerGene.String(),
		Alleles: map[string]domain.FunctionClass{
			"*1":  domain.NORMAL_FUNCTION,
			"*2A": domain.NO_FUNCTION,
			"*13": domain.NO_FUNCTION,
		},
		Guidance: map[string]Guidance{
			domain.PoorMetabolizer:         {Level: "1A", Recommendation: "Avoid 5-FU and capecitabine — life-threatening toxicity risk. Use alternative chemotherapy."},
			domain.IntermediateMetabolizer: {Level: "1A", Recommendation: "Start fluoropyrimidines at 50% dose; escalate based on tolerance and monitoring."},
			domain.NormalMetabolizer:       {Level: "B", Recommendation: "Standard fluoropyrimidine dosing."},
		},
	},
	{
		Name:   "VKORC1",
		Family: domain.SensitivityGene.String(),
		Alleles: map[string]domain.FunctionClass{
			"-1639G>A": domain.INCREASED_FUNCTION,
		},
		Guidance: map[string]Guidance{
			domain.HighWarfarinSensitivity:     {Level: "2A", Recommendation: "Significantly reduce warfarin starting dose. Very high bleeding risk."},
			domain.ModerateWarfarinSensitivity: {Level: "2A", Recommendation: "Reduce warfarin starting dose. Increase INR monitoring."},
			domain.NormalWarfarinSensitivity:   {Level: "B", Recommendation: "Standard warfarin dosing."},
		},
	},
}
