package ui

const uiHeader = `
<html>
	<head>
	<style>
		body {
			font-family: monospace;
		}
		table {
			border-collapse: collapse;
			width: 100%;
		}
		th, td {
			border: 1px solid black;
			padding: 8px;
			text-align: left;
		}
		th {
			background-color: black;
			color: white;
		}
		.verdict-OK { color: green; }
		.verdict-RE, .verdict-TLE, .verdict-MLE, .verdict-SE { color: red; }
	</style>
	</head>
	<body>
	<h2>verdict: recent executions</h2>
`

const uiFooter = `
	</body>
</html>
`

const recentView = `
	<form action="/run" method="post">
		<input type="text" name="path" placeholder="/path/to/executable" size="40">
		<input type="text" name="time_limit" placeholder="time limit (s)" size="12">
		<input type="text" name="memory_limit" placeholder="memory limit (bytes)" size="18">
		<input type="submit" value="run">
	</form>
	<table>
		<tr>
			<th>#</th>
			<th>executable</th>
			<th>verdict</th>
			<th>time (s)</th>
			<th>memory (bytes)</th>
			<th>finished</th>
		</tr>
		{{range $i, $r := .Records}}
		<tr>
			<td><a href="/result/{{$i}}">{{$i}}</a></td>
			<td>{{$r.Path}}</td>
			<td class="verdict-{{$r.Result.Code}}">{{$r.Result.Code}}</td>
			<td>{{printf "%.6f" $r.Result.ExecTime}}</td>
			<td>{{$r.Result.ExecMem}}</td>
			<td>{{$r.When}}</td>
		</tr>
		{{end}}
	</table>
`

const resultDetailView = `
	<table>
		<tr>
			<th>field</th>
			<th>value</th>
		</tr>
		{{range rDeets .}}
		<tr>
			<td>{{.Field}}</td>
			<td>{{.Value}}</td>
		</tr>
		{{end}}
	</table>
	<p><a href="/">back</a></p>
`

const errorView = `
	<p>request failed: {{.}}</p>
`
