package analysis

// Prompt text for each orchestration stage. The synthesis and summary
// prompts deliberately interpret p-values instead of quoting them.

const generationPrompt = `You are an expert data analyst. Given the dataset description below, propose 8-10 specific, testable hypotheses about relationships in the data.
Each hypothesis must be verifiable with a statistical test on the columns described. For each, state the hypothesis itself and the concrete benefit of knowing the answer.`

const analysisPrompt = "You are an expert data analyst. Write Go code to test the given hypothesis against the dataset described below.\n" +
	"Respond with a single fenced code block defining exactly:\n\n" +
	"    func TestHypothesis(df *dataset.Dataset) (bool, float64)\n\n" +
	"It must return whether the hypothesis holds and the p-value of the test.\n" +
	"Available imports: \"hypoforge/dataset\" (the df type), \"hypoforge/stats\" (Mean, StdDev, Variance, Correlation, WelchTTest), plus fmt, math, sort, strings, strconv.\n" +
	"Useful accessors: df.Numeric(col), df.Strings(col), df.NumericWhere(valueCol, filterCol, equals).\n" +
	"No other packages are available. Do not read files or access the network."

const summaryPrompt = `You are an expert data analyst.
Given a hypothesis and its outcome, provide a plain English summary of the findings as a crisp H5 heading (#####), followed by 1-2 concise supporting sentences.
Highlight in **bold** the keywords in the supporting statements.
Do not mention the p-value but _interpret_ it to support the conclusion quantitatively.`

const synthesisPrompt = `Given the below hypotheses and results, summarize the key takeaways and actions in Markdown.
Begin with the hypotheses with lowest p-values AND highest business impact. Ignore results with errors.
Use action titles has H5 (#####). Just reading titles should tell the audience EXACTLY what to do.
Below each, add supporting bullet points that
  - PROVE the action title, mentioning which hypotheses led to this conclusion.
  - Do not mention the p-value but _interpret_ it to support the action
  - Highlight key phrases in **bold**.
Finally, after a break (---) add a 1-paragraph executive summary section (H5) summarizing these actions.`
