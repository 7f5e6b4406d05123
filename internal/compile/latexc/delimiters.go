package latexc

// delimiterPair brackets one extractable environment.
type delimiterPair struct {
	begin string
	end   string
}

// categoryDelimiters maps each instance category to the environment
// spellings that produce it. Order fixes extraction order, so it is a
// slice rather than a map.
var categoryDelimiters = []struct {
	category    string
	pairs       []delimiterPair
	mustContain string
}{
	{
		category: "equation",
		pairs: []delimiterPair{
			{`\begin{equation}`, `\end{equation}`},
			{`\begin{equation*}`, `\end{equation*}`},
			{`\begin{align}`, `\end{align}`},
			{`\begin{align*}`, `\end{align*}`},
			{`\begin{gather}`, `\end{gather}`},
		},
	},
	{
		category: "figure",
		pairs: []delimiterPair{
			{`\begin{figure}`, `\end{figure}`},
			{`\begin{figure*}`, `\end{figure*}`},
		},
		mustContain: `\includegraphics`,
	},
	{
		category: "table",
		pairs: []delimiterPair{
			{`\begin{table}`, `\end{table}`},
			{`\begin{table*}`, `\end{table*}`},
			{`\begin{tabular}`, `\end{tabular}`},
		},
	},
	{
		category: "algorithm",
		pairs: []delimiterPair{
			{`\begin{algorithm}`, `\end{algorithm}`},
			{`\begin{algorithmic}`, `\end{algorithmic}`},
		},
	},
	{
		category: "plot",
		pairs: []delimiterPair{
			{`\begin{tikzpicture}`, `\end{tikzpicture}`},
		},
	},
}

// documentBegin and documentEnd wrap an extracted environment into a
// standalone compilable document.
const documentBegin = `\documentclass{article}
\usepackage[utf8]{inputenc}
\usepackage{amsmath}
\usepackage{amssymb}
\usepackage{amsfonts}
\usepackage{graphicx}
\usepackage{booktabs}
\usepackage{tikz}
\usepackage{pgfplots}
\usepackage{algorithm}
\usepackage{algpseudocode}
\pagestyle{empty}
\begin{document}
`

const documentEnd = `
\end{document}
`
