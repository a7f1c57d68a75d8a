package detect

// englishSample is a plain-prose paragraph long enough to exercise the
// statistics against natural letter distributions (1372 letters after
// normalization).
const englishSample = `That is a secret message was the first thing the young clerk said when the envelope arrived at the station. The letter had traveled for three weeks across the country and the paper was worn thin at the corners. Inside there was a single sheet covered with neat rows of capital letters that meant nothing to anyone in the office. The clerk carried the sheet to the back room where the old examiner kept his tables and his charts of letter counts. Together they counted the letters one by one and wrote the totals in a ledger. The examiner said that every language leaves a shadow in the numbers and that English in particular shows the mark of the letter e in almost every line. When the counting was finished they compared the totals with the printed table on the wall. The shape of the counts told them the message had been shifted by a constant amount rather than scrambled without order. The examiner turned the alphabet three steps back and the words rose out of the noise one after another. The clerk read the recovered message aloud and the room went quiet for a long moment. The message said that the shipment would leave the harbor on the first clear morning and that the agent would wait under the clock with a gray umbrella. The examiner folded the sheet and locked it in the drawer with the other papers from that winter. He told the clerk that the method was older than the telegraph and that patience mattered more than luck. In the years that followed the clerk solved many such puzzles and he always began the same way by counting the letters and trusting the numbers. A secret message is only a message wearing a mask and the mask always slips when the counting is done with care.
`
